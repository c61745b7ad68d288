package form

import (
	"context"
	"sync"
	"time"

	"github.com/mbolis/surveyflow/log"
)

// Key identifies the form of one user on one survey. Session scopes it to
// one sign-in, since drafts are saved with that sign-in's credentials.
type Key struct {
	Session string
	UserID  string
	Slug    string
}

type entry struct {
	form     *Form
	lastUsed time.Time
}

// Registry keeps the live forms of the web frontend. Forms left alone
// longer than the idle TTL are flushed and dropped.
type Registry struct {
	idleTTL time.Duration
	now     func() time.Time

	mu    sync.Mutex
	forms map[Key]*entry

	stop chan struct{}
	done chan struct{}
}

func NewRegistry(idleTTL time.Duration) *Registry {
	r := &Registry{
		idleTTL: idleTTL,
		now:     time.Now,
		forms:   map[Key]*entry{},
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.janitor()
	return r
}

func (r *Registry) janitor() {
	defer close(r.done)

	every := r.idleTTL / 2
	if every < time.Second {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n := r.Sweep(ctx); n > 0 {
				log.Debugf("forms: evicted %d idle forms", n)
			}
			cancel()
		}
	}
}

// Open registers f under key. A form already there is flushed first.
func (r *Registry) Open(ctx context.Context, key Key, f *Form) {
	r.mu.Lock()
	old := r.forms[key]
	r.forms[key] = &entry{form: f, lastUsed: r.now()}
	r.mu.Unlock()

	if old != nil && old.form != f {
		if err := old.form.Close(ctx); err != nil {
			log.Warnf("forms: flushing replaced form %s/%s: %s", key.UserID, key.Slug, err)
		}
	}
}

// Get returns the form under key and marks it used.
func (r *Registry) Get(key Key) (*Form, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.forms[key]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.form, true
}

func (r *Registry) Remove(ctx context.Context, key Key) error {
	r.mu.Lock()
	e, ok := r.forms[key]
	delete(r.forms, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return e.form.Close(ctx)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.forms)
}

// Sweep closes and drops idle forms, returning how many went.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var idle []*Form
	for key, e := range r.forms {
		if e.lastUsed.Before(cutoff) {
			idle = append(idle, e.form)
			delete(r.forms, key)
		}
	}
	r.mu.Unlock()

	for _, f := range idle {
		if err := f.Close(ctx); err != nil {
			log.Warnf("forms: flushing idle form: %s", err)
		}
	}
	return len(idle)
}

// Close stops the janitor and flushes every form.
func (r *Registry) Close(ctx context.Context) {
	close(r.stop)
	<-r.done

	r.mu.Lock()
	forms := r.forms
	r.forms = map[Key]*entry{}
	r.mu.Unlock()

	for key, e := range forms {
		if err := e.form.Close(ctx); err != nil {
			log.Warnf("forms: flushing %s/%s: %s", key.UserID, key.Slug, err)
		}
	}
}
