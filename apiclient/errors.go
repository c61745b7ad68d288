package apiclient

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized      = errors.New("not authenticated")
	ErrNotFound          = errors.New("not found")
	ErrMalformedResponse = errors.New("malformed response")
)

// Error is a non-2xx answer from the API. Detail is the backend's message;
// Messages lists every message when the backend sent a list.
type Error struct {
	StatusCode int
	Detail     string
	Messages   []string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return "Request failed"
}

func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// StatusCode returns the status of an API error, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Messages returns the messages to show for err.
func Messages(err error) []string {
	var apiErr *Error
	if errors.As(err, &apiErr) && len(apiErr.Messages) > 0 {
		return apiErr.Messages
	}
	if err == nil {
		return nil
	}
	return []string{err.Error()}
}

// readError builds an Error from a failed response. The body may carry
// {"detail": "msg"} or {"detail": [{"msg": "..."}, ...]}, or nothing useful.
func readError(resp *http.Response) *Error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if json.Unmarshal(data, &body) != nil || len(body.Detail) == 0 {
		return apiErr
	}

	var detail string
	if json.Unmarshal(body.Detail, &detail) == nil {
		apiErr.Detail = detail
		apiErr.Messages = []string{detail}
		return apiErr
	}

	var items []json.RawMessage
	if json.Unmarshal(body.Detail, &items) != nil {
		return apiErr
	}
	for _, item := range items {
		var msg struct {
			Msg string `json:"msg"`
		}
		var s string
		switch {
		case json.Unmarshal(item, &s) == nil:
			apiErr.Messages = append(apiErr.Messages, s)
		case json.Unmarshal(item, &msg) == nil && msg.Msg != "":
			apiErr.Messages = append(apiErr.Messages, msg.Msg)
		}
	}
	apiErr.Detail = strings.Join(apiErr.Messages, "; ")
	return apiErr
}
