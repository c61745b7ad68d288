package devapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"github.com/mbolis/surveyflow/app"
	"github.com/mbolis/surveyflow/httpx"
	"github.com/mbolis/surveyflow/log"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

var (
	errGrantDenied  = errors.New("grant denied")
	reRefreshHeader = regexp.MustCompile(`(?i)^refresh\s+(.*)`)
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// grant runs a password or refresh_token grant against the bearer server.
func grant(app app.API, body url.Values) (*tokenResponse, error) {
	encoded := body.Encode()
	req, err := http.NewRequest(http.MethodPost, "/", strings.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(encoded)))

	resp := httpx.NewResponseBuffer()
	app.UserCredentials(resp, req)
	switch resp.Status() {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusBadRequest:
		return nil, errGrantDenied
	default:
		return nil, fmt.Errorf("token grant answered %d", resp.Status())
	}

	tok := &tokenResponse{}
	if err := json.Unmarshal(resp.Body(), tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func setTokenCookies(w http.ResponseWriter, tok *tokenResponse) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     accessCookie,
		Value:    tok.AccessToken,
		MaxAge:   int(tok.ExpiresIn),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     refreshCookie,
		Value:    tok.RefreshToken,
		MaxAge:   int(httpx.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookie, refreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Path:     "/",
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// Login trades basic auth credentials for token cookies.
func Login(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogDetail(w, r, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth", "Not authenticated")
			return
		}

		tok, err := grant(app, url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		})
		if errors.Is(err, errGrantDenied) {
			httpx.LogDetail(w, r, http.StatusUnauthorized, log.DebugLevel, "login.denied", "Invalid username or password")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "login.grant", err)
			return
		}

		setTokenCookies(w, tok)
		render.JSON(w, r, tok)
	}
}

// Refresh trades a refresh token, from the refresh_token cookie or an
// "Authorization: Refresh <token>" header, for new token cookies.
func Refresh(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var token string
		if match := reRefreshHeader.FindStringSubmatch(r.Header.Get("authorization")); len(match) > 0 {
			token = match[1]
		} else if c, err := r.Cookie(refreshCookie); err == nil {
			token = c.Value
		}
		if token == "" {
			httpx.LogDetail(w, r, http.StatusUnauthorized, log.DebugLevel, "refresh.token", "Not authenticated")
			return
		}

		tok, err := grant(app, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {token},
		})
		if errors.Is(err, errGrantDenied) {
			clearTokenCookies(w)
			httpx.LogDetail(w, r, http.StatusUnauthorized, log.DebugLevel, "refresh.denied", "Invalid or expired token")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "refresh.grant", err)
			return
		}

		setTokenCookies(w, tok)
		render.JSON(w, r, tok)
	}
}

func Me(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, currentUser(r.Context()))
	}
}

type message struct {
	Message string `json:"message"`
}

// Logout drops the token cookies. Tokens already issued stay valid until
// they expire.
func Logout(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clearTokenCookies(w)
		render.JSON(w, r, message{"Logged out successfully"})
	}
}
