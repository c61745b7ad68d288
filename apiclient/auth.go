package apiclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/mbolis/surveyflow/model"
)

// Me returns the signed-in user, or nil when nobody is signed in.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &u)
	if errors.Is(err, ErrUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Login signs in against the development identity provider. The session
// cookies come back on the response and are kept by the client's transport.
func (c *Client) Login(ctx context.Context, username, password string) (*model.User, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(username, password)

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	u, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &Error{StatusCode: http.StatusUnauthorized, Detail: "Login failed"}
	}
	return u, nil
}
