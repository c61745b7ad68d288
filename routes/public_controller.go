package routes

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"github.com/mbolis/surveyflow/apiclient"
	"github.com/mbolis/surveyflow/app"
	"github.com/mbolis/surveyflow/form"
	"github.com/mbolis/surveyflow/format"
	"github.com/mbolis/surveyflow/httpx"
	"github.com/mbolis/surveyflow/log"
	"github.com/mbolis/surveyflow/model"
	"github.com/mbolis/surveyflow/session"
	"github.com/mbolis/surveyflow/survey"
	"github.com/mbolis/surveyflow/views"
)

func formKey(r *http.Request) form.Key {
	return form.Key{
		Session: session.FromContext(r.Context()).ID,
		UserID:  session.UserFrom(r.Context()).ID,
		Slug:    chi.URLParam(r, "slug"),
	}
}

// loadForm returns the respondent's form, starting one from the survey and
// any earlier response of theirs when there is none yet.
func loadForm(app app.Web, r *http.Request, key form.Key) (*form.Form, error) {
	if f, ok := app.Forms.Get(key); ok {
		return f, nil
	}

	ctx, cancel := withTimeout(app, r)
	defer cancel()
	api := session.FromContext(r.Context()).Client(app.API)

	var (
		s    *model.Survey
		prev *model.Response
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s, err = api.PublicSurvey(gctx, key.Slug)
		return
	})
	g.Go(func() error {
		resp, err := api.MyResponse(gctx, key.Slug)
		switch {
		case errors.Is(err, apiclient.ErrNotFound):
		case err != nil:
			log.Warnf("respond.my_response: %s", err)
		default:
			prev = resp
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slug := key.Slug
	save := func(ctx context.Context, answers model.Answers) error {
		_, err := api.Respond(ctx, slug, answers, true)
		return err
	}
	submit := func(ctx context.Context, answers model.Answers) error {
		_, err := api.Respond(ctx, slug, answers, false)
		return err
	}

	opts := []form.Option{form.WithAutosave(app.AutosaveDelay, save, form.WithSaveTimeout(app.RequestTimeout))}
	var initial model.Answers
	if prev != nil {
		initial = prev.Answers
		if !prev.IsDraft {
			opts = append(opts, form.WithSubmission())
		}
	}
	f := form.New(s, initial, submit, opts...)
	if prev != nil {
		f.Autosave().SetLastSaved(prev.UpdatedAt)
	}

	app.Forms.Open(r.Context(), key, f)
	return f, nil
}

func RespondPage(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := loadForm(app, r, formKey(r))
		if err != nil {
			apiFailure(app, w, r, "respond.load", "Unable to load survey", err)
			return
		}

		s := f.Survey()
		errs := f.Errors()
		status, savedAt := f.Autosave().Status()

		p := views.RespondPage{
			Page:        page(r),
			Survey:      s,
			Answers:     f.Answers(),
			Errors:      errs,
			HasErrors:   survey.HasErrors(errs),
			SaveStatus:  status,
			SubmitLabel: "Submit Survey",
			Submitting:  f.State() == form.Submitting,
			Open:        s.IsOpen == nil || *s.IsOpen,
		}
		p.FirstErrorID, _ = survey.FirstErrorID(s, errs)
		if !savedAt.IsZero() {
			p.LastSaved = &savedAt
		}
		if f.HasSubmission() {
			p.SubmitLabel = "Update Response"
		}
		if err := f.Err(); err != nil {
			p.Error = message(err)
		}

		app.Views.Render(w, http.StatusOK, "respond", p)
	}
}

type saveState struct {
	HTML      template.HTML   `json:"html,omitempty"`
	Status    form.SaveStatus `json:"status"`
	LastSaved string          `json:"last_saved,omitempty"`
}

func stateOf(app app.Web, f *form.Form) saveState {
	status, savedAt := f.Autosave().Status()
	st := saveState{Status: status}
	if !savedAt.IsZero() {
		st.LastSaved = format.RelativeTime(&savedAt, now(app))
	}
	return st
}

type answerRequest struct {
	QuestionID string `json:"question_id"`
	survey.Input
}

// SaveAnswer applies one widget change and answers with the re-rendered
// question and the autosave status.
func SaveAnswer(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := answerRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "save_answer.parse_body", "Invalid request body")
			return
		}

		f, ok := app.Forms.Get(formKey(r))
		if !ok {
			httpx.LogDetail(w, r, http.StatusConflict, log.DebugLevel, "save_answer.no_form", "This page has expired. Please reload it.")
			return
		}

		v, err := f.Apply(req.QuestionID, req.Input)
		switch {
		case errors.Is(err, form.ErrUnknownQuestion):
			httpx.LogDetail(w, r, http.StatusNotFound, log.DebugLevel, "save_answer.question", err.Error())
			return
		case err != nil:
			httpx.LogDetail(w, r, http.StatusUnprocessableEntity, log.DebugLevel, "save_answer.apply", err.Error())
			return
		}

		st := stateOf(app, f)
		q, _ := f.Survey().Question(req.QuestionID)
		st.HTML, err = app.Widgets.Render(q, v, "")
		if err != nil {
			httpx.LogInternalError(w, "save_answer.render", err)
			return
		}
		render.JSON(w, r, st)
	}
}

func SaveStatus(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := app.Forms.Get(formKey(r))
		if !ok {
			httpx.LogDetail(w, r, http.StatusNotFound, log.DebugLevel, "save_status.no_form", "No form in progress")
			return
		}
		render.JSON(w, r, stateOf(app, f))
	}
}

// Submit takes the posted form as the full set of answers, then submits.
// Every outcome redirects back to a page.
func Submit(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		back := "/s/" + slug

		if err := r.ParseForm(); err != nil {
			renderError(app, w, r, http.StatusBadRequest, "Unable to submit", "Invalid request.")
			return
		}

		f, err := loadForm(app, r, formKey(r))
		if err != nil {
			apiFailure(app, w, r, "submit.load", "Unable to load survey", err)
			return
		}
		mergePosted(f, r)

		ctx, cancel := withTimeout(app, r)
		defer cancel()
		res, err := f.Submit(ctx)
		switch {
		case errors.Is(err, form.ErrSubmitPending):
			log.Debugf("submit.pending: %s", slug)
		case errors.Is(err, apiclient.ErrUnauthorized):
			apiFailure(app, w, r, "submit.api", "", err)
			return
		case err != nil:
			log.Warnf("submit.api: %s", err)
		case !res.Submitted:
			back += "#question-" + res.FirstErrorID
		default:
			back += "/thanks"
		}
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
}

// mergePosted copies the posted values into the form. Each rendered question
// is listed in _q, so a listed question with nothing posted was cleared.
func mergePosted(f *form.Form, r *http.Request) {
	for _, qid := range r.PostForm["_q"] {
		q, ok := f.Survey().Question(qid)
		if !ok || !q.Type.Known() {
			continue
		}
		v, ok := survey.WidgetFor(q).FromForm(r.PostForm)
		if !ok {
			v = nil
		}
		if err := f.SetAnswer(qid, v); err != nil {
			log.Debugf("submit.merge: %s", err)
		}
	}
}

func Thanks(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		f, ok := app.Forms.Get(formKey(r))
		if !ok || f.State() != form.Submitted {
			http.Redirect(w, r, "/s/"+slug, http.StatusSeeOther)
			return
		}
		app.Views.Render(w, http.StatusOK, "thanks", views.ThanksPage{Page: page(r), Slug: slug})
	}
}
