package session

import (
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"github.com/mbolis/surveyflow/apiclient"
	"github.com/mbolis/surveyflow/httpx"
	"github.com/mbolis/surveyflow/log"
	"github.com/mbolis/surveyflow/model"
)

// CookieName is the browser cookie pointing at a server-side session.
const CookieName = "surveyflow_session"

// APICookies are the API's own cookies. A browser that already carries them
// (signed in directly against the API) gets a session built from them.
var APICookies = []string{"access_token", "refresh_token"}

type Manager struct {
	api      *apiclient.Client
	base     http.RoundTripper
	loginURL string
	idleTTL  time.Duration
	secure   bool
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

type Option func(*Manager)

// WithLoginURL sends signed-out users to an external login page.
func WithLoginURL(u string) Option {
	return func(m *Manager) { m.loginURL = u }
}

// WithTransport sets the transport used to reach the API.
func WithTransport(rt http.RoundTripper) Option {
	return func(m *Manager) { m.base = rt }
}

func WithIdleTTL(d time.Duration) Option {
	return func(m *Manager) { m.idleTTL = d }
}

func WithSecureCookies(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

func NewManager(api *apiclient.Client, opts ...Option) *Manager {
	m := &Manager{
		api:      api,
		base:     http.DefaultTransport,
		idleTTL:  24 * time.Hour,
		now:      time.Now,
		sessions: map[string]*Session{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

func (m *Manager) store(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.idleTTL)
	for id, other := range m.sessions {
		if other.idleSince(cutoff) {
			delete(m.sessions, id)
		}
	}
	m.sessions[s.ID] = s
}

func (m *Manager) drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) create() *Session {
	id, err := uuid.NewV4()
	if err != nil {
		// crypto/rand failing leaves nothing sensible to do
		panic(err)
	}
	return newSession(id.String(), m.base)
}

func (m *Manager) setCookie(w http.ResponseWriter, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// lookup finds the session of the request, adopting API cookies sent by the
// browser when there is none.
func (m *Manager) lookup(r *http.Request) (s *Session, adopted bool) {
	if c, err := r.Cookie(CookieName); err == nil {
		if s := m.get(c.Value); s != nil {
			return s, false
		}
	}

	for _, name := range APICookies {
		c, err := r.Cookie(name)
		if err != nil {
			continue
		}
		if s == nil {
			s = m.create()
		}
		s.SetCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return s, s != nil
}

// Middleware resolves the session of every request and fetches the current
// user from the API before handing over.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, adopted := m.lookup(r)
		if s == nil {
			if _, err := r.Cookie(CookieName); err == nil {
				m.clearCookie(w)
			}
			next.ServeHTTP(w, r)
			return
		}

		s.touch(m.now())
		u, err := s.Client(m.api).Me(r.Context())
		switch {
		case err != nil:
			log.Warnf("session.me: %s", err)
		default:
			s.SetUser(u)
		}

		if !s.Valid() || (adopted && s.User() == nil) {
			if !adopted {
				m.drop(s.ID)
				m.clearCookie(w)
			}
			next.ServeHTTP(w, r)
			return
		}
		if adopted {
			m.store(s)
			m.setCookie(w, s)
		}

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}

// Login signs in against the API and starts a session for the browser.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, username, password string) (*model.User, error) {
	s := m.create()
	u, err := s.Client(m.api).Login(r.Context(), username, password)
	if err != nil {
		return nil, err
	}
	s.SetUser(u)
	s.touch(m.now())
	m.store(s)
	m.setCookie(w, s)
	return u, nil
}

// Logout ends the request's session, on the API and here.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) {
	if s := FromContext(r.Context()); s != nil {
		err := s.Client(m.api).Logout(r.Context())
		if err != nil && !errors.Is(err, apiclient.ErrUnauthorized) {
			log.Warnf("session.logout: %s", err)
		}
		s.Invalidate()
		m.drop(s.ID)
	}
	m.clearCookie(w)
}

// LoginURL is where a signed-out user goes to come back to r afterwards.
func (m *Manager) LoginURL(r *http.Request) string {
	if m.loginURL != "" {
		return m.loginURL
	}
	return "/login?goto=" + url.QueryEscape(r.URL.RequestURI())
}

func (m *Manager) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "session.unauthenticated")
		return
	}
	http.Redirect(w, r, m.LoginURL(r), http.StatusSeeOther)
}

// RequireUser lets only signed-in users through.
func (m *Manager) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFrom(r.Context()) == nil {
			m.unauthenticated(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin lets only admins through; other users go back home.
func (m *Manager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := UserFrom(r.Context())
		if u == nil {
			m.unauthenticated(w, r)
			return
		}
		if !u.IsAdmin {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "session.not_admin")
				return
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
