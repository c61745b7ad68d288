// Package session keeps the API credentials of each signed-in browser on the
// server side and exposes who the current user is.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/mbolis/surveyflow/apiclient"
	"github.com/mbolis/surveyflow/model"
)

// Session holds the API cookies and the current user of one browser. Every
// API call made through it carries its cookies, picks up refreshed ones, and
// a 401 from the API invalidates it.
type Session struct {
	ID string

	base http.RoundTripper

	mu       sync.Mutex
	cookies  map[string]*http.Cookie
	user     *model.User
	invalid  bool
	lastUsed time.Time
}

func newSession(id string, base http.RoundTripper) *Session {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Session{
		ID:       id,
		base:     base,
		cookies:  map[string]*http.Cookie{},
		lastUsed: time.Now(),
	}
}

func (s *Session) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) SetUser(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}

func (s *Session) IsAdmin() bool {
	u := s.User()
	return u != nil && u.IsAdmin
}

// Valid is false once the API has rejected the session.
func (s *Session) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.invalid
}

// Invalidate forgets the user and the credentials.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalid = true
	s.user = nil
	s.cookies = map[string]*http.Cookie{}
}

// SetCookie stores a cookie received from the API; expired ones are removed.
func (s *Session) SetCookie(c *http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCookieLocked(c)
}

func (s *Session) setCookieLocked(c *http.Cookie) {
	if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) || c.Value == "" {
		delete(s.cookies, c.Name)
		return
	}
	s.cookies[c.Name] = &http.Cookie{Name: c.Name, Value: c.Value}
}

func (s *Session) HasCredentials() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cookies) > 0
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = now
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed.Before(cutoff)
}

// Transport is an http.RoundTripper acting on behalf of the session.
func (s *Session) Transport() http.RoundTripper {
	return transport{s}
}

func (s *Session) HTTPClient() *http.Client {
	return &http.Client{Transport: s.Transport()}
}

// Client returns api acting on behalf of the session.
func (s *Session) Client(api *apiclient.Client) *apiclient.Client {
	return api.WithHTTPClient(s.HTTPClient())
}

type transport struct {
	s *Session
}

func (t transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	t.s.mu.Lock()
	for _, c := range t.s.cookies {
		req.AddCookie(c)
	}
	t.s.mu.Unlock()

	resp, err := t.s.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		t.s.Invalidate()
		return resp, nil
	}
	if cookies := resp.Cookies(); len(cookies) > 0 {
		t.s.mu.Lock()
		for _, c := range cookies {
			t.s.setCookieLocked(c)
		}
		t.s.mu.Unlock()
	}
	return resp, nil
}

type contextKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request's session, or nil for anonymous requests.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// UserFrom returns the signed-in user of the request, or nil.
func UserFrom(ctx context.Context) *model.User {
	if s := FromContext(ctx); s != nil {
		return s.User()
	}
	return nil
}
