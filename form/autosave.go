package form

import (
	"context"
	"sync"
	"time"

	"github.com/mbolis/surveyflow/log"
	"github.com/mbolis/surveyflow/model"
)

type SaveStatus string

const (
	StatusIdle   SaveStatus = "idle"
	StatusSaving SaveStatus = "saving"
	StatusSaved  SaveStatus = "saved"
	StatusError  SaveStatus = "error"
)

// savedDisplay is how long a successful save reads as "saved" before going idle.
const savedDisplay = 2 * time.Second

// SaveFunc persists a draft.
type SaveFunc func(ctx context.Context, answers model.Answers) error

// Autosaver coalesces bursts of changes into one save: each Schedule resets
// the timer and only the latest answers are sent. Failed saves are not retried.
type Autosaver struct {
	delay   time.Duration
	timeout time.Duration
	save    SaveFunc
	gate    *sync.Mutex
	now     func() time.Time

	mu      sync.Mutex
	timer   *time.Timer
	pending model.Answers
	gen     uint64
	status  SaveStatus
	savedAt time.Time
	lastErr error
	closed  bool
	wg      sync.WaitGroup
}

type AutosaveOption func(*Autosaver)

// WithGate serializes saves with other requests holding the same mutex.
func WithGate(gate *sync.Mutex) AutosaveOption {
	return func(a *Autosaver) { a.gate = gate }
}

func WithClock(now func() time.Time) AutosaveOption {
	return func(a *Autosaver) { a.now = now }
}

// WithSaveTimeout bounds each background save.
func WithSaveTimeout(d time.Duration) AutosaveOption {
	return func(a *Autosaver) { a.timeout = d }
}

func NewAutosaver(delay time.Duration, save SaveFunc, opts ...AutosaveOption) *Autosaver {
	a := &Autosaver{
		delay:   delay,
		timeout: 30 * time.Second,
		save:    save,
		gate:    &sync.Mutex{},
		now:     time.Now,
		status:  StatusIdle,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Schedule (re)starts the quiet period with the given answers.
func (a *Autosaver) Schedule(answers model.Answers) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	a.pending = answers
	a.gen++
	gen := a.gen
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
}

// Cancel drops a scheduled save that hasn't started yet.
func (a *Autosaver) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dropLocked()
}

func (a *Autosaver) dropLocked() {
	a.pending = nil
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// Flush sends a scheduled save right away.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	answers := a.pending
	if answers == nil || a.closed {
		a.mu.Unlock()
		return nil
	}
	a.dropLocked()
	a.status = StatusSaving
	a.wg.Add(1)
	a.mu.Unlock()

	defer a.wg.Done()
	return a.run(ctx, answers)
}

// Close flushes what is pending and waits for in-flight saves.
func (a *Autosaver) Close(ctx context.Context) error {
	err := a.Flush(ctx)

	a.mu.Lock()
	a.closed = true
	a.dropLocked()
	a.mu.Unlock()

	a.wg.Wait()
	return err
}

func (a *Autosaver) fire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || a.pending == nil || a.closed {
		a.mu.Unlock()
		return
	}
	answers := a.pending
	a.pending = nil
	a.timer = nil
	a.status = StatusSaving
	a.wg.Add(1)
	a.mu.Unlock()

	defer a.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.run(ctx, answers); err != nil {
		log.Warnf("autosave: %s", err)
	}
}

func (a *Autosaver) run(ctx context.Context, answers model.Answers) error {
	a.gate.Lock()
	err := a.save(ctx, answers)
	a.gate.Unlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.status = StatusError
		a.lastErr = err
		return err
	}
	a.status = StatusSaved
	a.savedAt = a.now()
	a.lastErr = nil
	return nil
}

// Status reports the save status and when the draft was last saved.
func (a *Autosaver) Status() (SaveStatus, time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	status := a.status
	if status == StatusSaved && a.now().Sub(a.savedAt) >= savedDisplay {
		status = StatusIdle
	}
	return status, a.savedAt
}

func (a *Autosaver) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// SetLastSaved seeds the last-saved time from an existing response.
func (a *Autosaver) SetLastSaved(t time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.savedAt = t
}
