package devapi

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"

	"github.com/mbolis/surveyflow/app"
	"github.com/mbolis/surveyflow/httpx"
	"github.com/mbolis/surveyflow/log"
	"github.com/mbolis/surveyflow/model"
)

const maxBodySize = 1 << 20

type ctxKey struct{}

func currentUser(ctx context.Context) *model.User {
	u, _ := ctx.Value(ctxKey{}).(*model.User)
	return u
}

// CookieAuth lets callers authenticate with the access_token cookie. When the
// handler answers 401 and a refresh_token cookie is present, the tokens are
// refreshed and the request is replayed once.
func CookieAuth(app app.API) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("authorization") != "" {
				h.ServeHTTP(w, r)
				return
			}

			token, _ := r.Cookie(accessCookie)
			refreshToken, _ := r.Cookie(refreshCookie)
			if token == nil && refreshToken == nil {
				h.ServeHTTP(w, r)
				return
			}

			// the body is kept so the request can run twice
			var body []byte
			if r.Body != nil {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, maxBodySize))
				if err != nil {
					httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "cookie_auth.read_body")
					return
				}
				r.Body.Close()
			}
			replay := func() { r.Body = io.NopCloser(bytes.NewReader(body)) }

			if token != nil {
				r.Header.Set("authorization", "Bearer "+token.Value)
				replay()
				buf := httpx.NewResponseBuffer()
				h.ServeHTTP(buf, r)
				if buf.Status() != http.StatusUnauthorized || refreshToken == nil {
					if err := buf.Flush(w); err != nil {
						httpx.LogWriteError("cookie_auth.flush", err)
					}
					return
				}
			}

			// token was missing or unauthorized
			tok, err := grant(app, url.Values{
				"grant_type":    {"refresh_token"},
				"refresh_token": {refreshToken.Value},
			})
			if errors.Is(err, errGrantDenied) {
				clearTokenCookies(w)
				httpx.LogDetail(w, r, http.StatusUnauthorized, log.DebugLevel, "cookie_auth.refresh", "Invalid or expired token")
				return
			}
			if err != nil {
				httpx.LogInternalError(w, "cookie_auth.refresh", err)
				return
			}

			setTokenCookies(w, tok)
			r.Header.Set("authorization", "Bearer "+tok.AccessToken)
			replay()
			h.ServeHTTP(w, r)
		})
	}
}

// Authenticated checks the bearer token and loads its user.
func Authenticated(app app.API) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return oauth.Authorize(app.TokenSecret, nil)(loadUser(app, next))
	}
}

func loadUser(app app.API, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, _ := r.Context().Value(oauth.CredentialContext).(string)

		u := model.User{}
		err := app.QueryRowContext(r.Context(), `
			SELECT id, username, email, avatar_url, is_admin
			FROM user
			WHERE username = ?`,
			username,
		).Scan(&u.ID, &u.Username, &u.Email, &u.AvatarURL, &u.IsAdmin)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogDetail(w, r, http.StatusUnauthorized, log.DebugLevel, "auth.load_user", "User not found")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.auth.load_user", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, &u)))
	})
}

// Admin lets through tokens carrying the 'admin' role.
func Admin(app app.API) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(Authenticated(app), admin).Handler(next)
	}
}

func admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)

		isAdmin := false
		if rolesClaim, ok := claims["roles"]; ok {
			for _, role := range strings.Split(rolesClaim, ",") {
				if role == "admin" {
					isAdmin = true
					break
				}
			}
		}

		if !isAdmin {
			httpx.LogDetail(w, r, http.StatusForbidden, log.DebugLevel, "auth.admin", "Admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
