package session

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/surveyflow/apiclient"
)

// fakeAPI accepts any token in its valid set; logging in as "ada" issues an
// admin token, as "bob" a plain one.
type fakeAPI struct {
	mu     sync.Mutex
	tokens map[string]string
	n      int
}

func (f *fakeAPI) issue(w http.ResponseWriter, user string) {
	f.mu.Lock()
	f.n++
	tok := fmt.Sprintf("tok%d", f.n)
	f.tokens[tok] = user
	f.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: "access_token", Value: tok, Path: "/"})
}

func (f *fakeAPI) userOf(r *http.Request) (string, bool) {
	c, err := r.Cookie("access_token")
	if err != nil {
		return "", false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.tokens[c.Value]
	return u, ok
}

func (f *fakeAPI) revokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = map[string]string{}
}

func (f *fakeAPI) handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		if pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.issue(w, user)
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		user, ok := f.userOf(r)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id": %q, "github_username": %q, "is_admin": %t}`, "id-"+user, user, user == "ada")
	})
	r.Post("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "access_token", Path: "/", MaxAge: -1})
		w.WriteHeader(http.StatusNoContent)
	})
	// rotate replaces the caller's token, as a refresh would
	r.Post("/rotate", func(w http.ResponseWriter, r *http.Request) {
		user, ok := f.userOf(r)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.revokeAll()
		f.issue(w, user)
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

type harness struct {
	api     *fakeAPI
	client  *apiclient.Client
	manager *Manager
	app     http.Handler
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	api := &fakeAPI{tokens: map[string]string{}}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	client := apiclient.New(srv.URL, nil)
	m := NewManager(client, opts...)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
		if _, err := m.Login(w, r, r.FormValue("username"), "secret"); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	})
	r.Post("/logout", m.Logout)
	r.With(m.RequireUser).Get("/me", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, UserFrom(r.Context()).Username)
	})
	r.With(m.RequireAdmin).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "admin area")
	})
	r.With(m.RequireAdmin).Post("/admin", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "admin action")
	})
	r.Post("/rotate", func(w http.ResponseWriter, r *http.Request) {
		req, _ := http.NewRequestWithContext(r.Context(), http.MethodPost, srv.URL+"/rotate", nil)
		resp, err := FromContext(r.Context()).HTTPClient().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	})

	return &harness{api: api, client: client, manager: m, app: r}
}

func (h *harness) do(method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.app.ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(t *testing.T, user string) *http.Cookie {
	t.Helper()
	rec := h.do(http.MethodPost, "/login?username="+user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestLoginStartsSession(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "ada")

	rec := h.do(http.MethodGet, "/me", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada", rec.Body.String())
	assert.Equal(t, 1, h.manager.Len())
}

func TestSignedOutUserIsSentToLogin(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/me?x=1")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?goto=%2Fme%3Fx%3D1", rec.Header().Get("Location"))

	rec = h.do(http.MethodPost, "/admin")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExternalLoginURL(t *testing.T) {
	h := newHarness(t, WithLoginURL("https://api.example.com/auth/github"))

	rec := h.do(http.MethodGet, "/me")
	assert.Equal(t, "https://api.example.com/auth/github", rec.Header().Get("Location"))
}

func TestRequireAdmin(t *testing.T) {
	h := newHarness(t)
	bob := h.login(t, "bob")
	ada := h.login(t, "ada")

	rec := h.do(http.MethodGet, "/admin", bob)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = h.do(http.MethodPost, "/admin", bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/admin", ada)
	assert.Equal(t, "admin area", rec.Body.String())
}

func TestTransportKeepsRefreshedCookies(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "bob")

	rec := h.do(http.MethodPost, "/rotate", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/me", cookie)
	assert.Equal(t, "bob", rec.Body.String())
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "bob")
	h.api.revokeAll()

	rec := h.do(http.MethodGet, "/me", cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 0, h.manager.Len())

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "bob")

	h.do(http.MethodPost, "/logout", cookie)
	assert.Equal(t, 0, h.manager.Len())

	rec := h.do(http.MethodGet, "/me", cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestAdoptsAPICookies(t *testing.T) {
	h := newHarness(t)
	rec := httptest.NewRecorder()
	h.api.issue(rec, "ada")
	apiCookie := rec.Result().Cookies()[0]

	rec = h.do(http.MethodGet, "/me", apiCookie)
	assert.Equal(t, "ada", rec.Body.String())
	assert.Equal(t, 1, h.manager.Len())

	rec = h.do(http.MethodGet, "/me", &http.Cookie{Name: "access_token", Value: "forged"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, h.manager.Len())
}
