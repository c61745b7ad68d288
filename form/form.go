// Package form holds the state of one respondent filling in one survey.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mbolis/surveyflow/model"
	"github.com/mbolis/surveyflow/survey"
)

type State string

const (
	Editing    State = "editing"
	Validating State = "validating"
	Submitting State = "submitting"
	Submitted  State = "submitted"
)

var (
	ErrUnknownQuestion = errors.New("unknown question")
	ErrSubmitPending   = errors.New("submission already in progress")
)

// SubmitFunc sends the final answers.
type SubmitFunc func(ctx context.Context, answers model.Answers) error

// Result is the outcome of a submit attempt that got past validation or
// stopped at it.
type Result struct {
	Errors       survey.Errors
	FirstErrorID string
	Submitted    bool
}

type Form struct {
	survey   *model.Survey
	submit   SubmitFunc
	autosave *Autosaver

	// gate serializes autosave and submit requests.
	gate sync.Mutex

	mu         sync.Mutex
	answers    model.Answers
	errors     survey.Errors
	state      State
	failure    error
	submission bool
}

type Option func(*Form)

// WithAutosave saves drafts through save after delay of quiet.
func WithAutosave(delay time.Duration, save SaveFunc, opts ...AutosaveOption) Option {
	return func(f *Form) {
		opts = append([]AutosaveOption{WithGate(&f.gate)}, opts...)
		f.autosave = NewAutosaver(delay, save, opts...)
	}
}

// WithSubmission marks the answers as coming from a response that was
// already submitted once.
func WithSubmission() Option {
	return func(f *Form) { f.submission = true }
}

// New starts a form on s, resuming from initial (a draft or a previous response).
func New(s *model.Survey, initial model.Answers, submit SubmitFunc, opts ...Option) *Form {
	f := &Form{
		survey:  s,
		submit:  submit,
		answers: survey.Coerce(s, initial),
		errors:  survey.Errors{},
		state:   Editing,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Form) Survey() *model.Survey { return f.survey }

// Autosave returns nil when the form was built without autosave.
func (f *Form) Autosave() *Autosaver { return f.autosave }

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// HasSubmission reports whether these answers were submitted at least once.
func (f *Form) HasSubmission() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submission
}

// Answers returns a copy of the current answers.
func (f *Form) Answers() model.Answers {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answers.Clone()
}

func (f *Form) Value(qid string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answers[qid]
}

// Errors returns a copy of the validation errors of the last submit.
func (f *Form) Errors() survey.Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	errs := make(survey.Errors, len(f.errors))
	for k, v := range f.errors {
		errs[k] = v
	}
	return errs
}

// Err is the failure of the last submit, if any.
func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failure
}

// SetAnswer replaces the value of a question; nil removes it.
func (f *Form) SetAnswer(qid string, v any) error {
	q, ok := f.survey.Question(qid)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuestion, qid)
	}
	if v != nil {
		c, ok := survey.WidgetFor(q).Coerce(v)
		if !ok {
			return fmt.Errorf("%w for %q", survey.ErrInvalidInput, qid)
		}
		v = c
	}

	f.mu.Lock()
	f.setLocked(qid, v)
	snapshot := f.answers.Clone()
	f.mu.Unlock()

	f.schedule(snapshot)
	return nil
}

// Apply runs one widget interaction against the current value and returns
// the new one.
func (f *Form) Apply(qid string, in survey.Input) (any, error) {
	q, ok := f.survey.Question(qid)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuestion, qid)
	}

	f.mu.Lock()
	v, err := survey.WidgetFor(q).Apply(f.answers[qid], in)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.setLocked(qid, v)
	snapshot := f.answers.Clone()
	f.mu.Unlock()

	f.schedule(snapshot)
	return v, nil
}

func (f *Form) setLocked(qid string, v any) {
	if v == nil {
		delete(f.answers, qid)
	} else {
		f.answers[qid] = v
	}
	delete(f.errors, qid)
	if f.state == Submitted {
		f.state = Editing
	}
}

func (f *Form) schedule(answers model.Answers) {
	if f.autosave != nil {
		f.autosave.Schedule(answers)
	}
}

// Submit validates the answers and, when they pass, sends them. Validation
// failures are reported in the Result, not as an error.
func (f *Form) Submit(ctx context.Context) (Result, error) {
	f.mu.Lock()
	if f.state == Submitting {
		f.mu.Unlock()
		return Result{}, ErrSubmitPending
	}

	f.state = Validating
	errs := survey.Validate(f.survey, f.answers)
	if survey.HasErrors(errs) {
		f.errors = errs
		f.state = Editing
		first, _ := survey.FirstErrorID(f.survey, errs)
		f.mu.Unlock()
		return Result{Errors: errs, FirstErrorID: first}, nil
	}

	f.errors = survey.Errors{}
	f.failure = nil
	f.state = Submitting
	answers := f.answers.Clone()
	f.mu.Unlock()

	if f.autosave != nil {
		f.autosave.Cancel()
	}
	f.gate.Lock()
	err := f.submit(ctx, answers)
	f.gate.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = Editing
		f.failure = err
		return Result{Errors: survey.Errors{}}, err
	}
	f.state = Submitted
	f.submission = true
	return Result{Errors: survey.Errors{}, Submitted: true}, nil
}

// Close flushes a pending draft.
func (f *Form) Close(ctx context.Context) error {
	if f.autosave == nil {
		return nil
	}
	return f.autosave.Close(ctx)
}
