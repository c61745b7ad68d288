package routes

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/mbolis/surveyflow/apiclient"
	"github.com/mbolis/surveyflow/app"
	"github.com/mbolis/surveyflow/format"
	"github.com/mbolis/surveyflow/httpx"
	"github.com/mbolis/surveyflow/log"
	"github.com/mbolis/surveyflow/model"
	"github.com/mbolis/surveyflow/session"
	"github.com/mbolis/surveyflow/survey"
	"github.com/mbolis/surveyflow/views"
)

const maxUploadSize = 1 << 20

// Home is the admin dashboard, or the list of open surveys for respondents.
func Home(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := withTimeout(app, r)
		defer cancel()
		api := client(app, r)

		if !session.UserFrom(r.Context()).IsAdmin {
			items, err := api.ActiveSurveys(ctx)
			if err != nil {
				apiFailure(app, w, r, "home.active_surveys", "Unable to load surveys", err)
				return
			}
			if len(items) == 1 {
				http.Redirect(w, r, "/s/"+items[0].Slug, http.StatusSeeOther)
				return
			}
			app.Views.Render(w, http.StatusOK, "respondent_home", views.RespondentHomePage{Page: page(r), Surveys: items})
			return
		}

		p := views.DashboardPage{Page: page(r)}
		items, err := api.ListSurveys(ctx)
		if err != nil {
			if errors.Is(err, apiclient.ErrUnauthorized) {
				apiFailure(app, w, r, "home.list_surveys", "", err)
				return
			}
			log.Errorf("home.list_surveys: %s", err)
			p.Error = message(err)
		}
		for _, it := range items {
			p.Surveys = append(p.Surveys, views.SurveyRow{SurveyItem: it, ShareURL: shareURL(app, it.Slug)})
		}
		app.Views.Render(w, http.StatusOK, "dashboard", p)
	}
}

func NewSurveyPage(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app.Views.Render(w, http.StatusOK, "create", views.CreatePage{Page: page(r)})
	}
}

// CreateSurvey takes an uploaded definition file, checks it and hands it to
// the API.
func CreateSurvey(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		parseErr := r.ParseMultipartForm(maxUploadSize)

		p := views.CreatePage{
			Page:     page(r),
			OpensAt:  r.PostFormValue("opens_at"),
			ClosesAt: r.PostFormValue("closes_at"),
		}
		fail := func(status int, msgs ...string) {
			p.Errors = msgs
			app.Views.Render(w, status, "create", p)
		}
		if parseErr != nil {
			log.Debugf("create_survey.parse_form: %s", parseErr)
			fail(http.StatusBadRequest, "Please choose a JSON configuration file.")
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			log.Debugf("create_survey.upload: %s", err)
			fail(http.StatusBadRequest, "Please choose a JSON configuration file.")
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			log.Debugf("create_survey.upload.read: %s", err)
			fail(http.StatusBadRequest, "Could not read the uploaded file.")
			return
		}

		def, err := survey.ParseDefinition(data)
		if err != nil {
			fail(http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := survey.CheckDefinition(def); err != nil {
			fail(http.StatusUnprocessableEntity, survey.Messages(err)...)
			return
		}

		opensAt, closesAt, msg := parseSchedule(p.OpensAt, p.ClosesAt)
		if msg != "" {
			fail(http.StatusUnprocessableEntity, msg)
			return
		}

		create, err := apiclient.NewSurveyCreate(def)
		if err != nil {
			httpx.LogInternalError(w, "create_survey.encode", err)
			return
		}
		create.OpensAt, create.ClosesAt = opensAt, closesAt

		ctx, cancel := withTimeout(app, r)
		defer cancel()
		created, err := client(app, r).CreateSurvey(ctx, create)
		switch {
		case errors.Is(err, apiclient.ErrUnauthorized):
			apiFailure(app, w, r, "create_survey.api", "", err)
			return
		case err != nil:
			log.Debugf("create_survey.api: %s", err)
			msgs := apiclient.Messages(err)
			if len(msgs) == 0 {
				msgs = []string{message(err)}
			}
			fail(http.StatusUnprocessableEntity, msgs...)
			return
		}

		p.Created = &views.CreatedSurvey{
			ID:       created.ID,
			Title:    created.Title,
			ShareURL: shareURL(app, created.Slug),
		}
		app.Views.Render(w, http.StatusCreated, "create", p)
	}
}

// parseSchedule reads a pair of datetime-local values; msg explains what is
// wrong with them.
func parseSchedule(opens, closes string) (opensAt, closesAt *time.Time, msg string) {
	var err error
	if opensAt, err = format.ParseDateTimeLocal(opens, time.Local); err != nil {
		return nil, nil, "Invalid open date"
	}
	if closesAt, err = format.ParseDateTimeLocal(closes, time.Local); err != nil {
		return nil, nil, "Invalid close date"
	}
	if opensAt != nil && closesAt != nil && !closesAt.After(*opensAt) {
		return nil, nil, "Close date must be after open date"
	}
	return opensAt, closesAt, ""
}

func Results(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderResults(app, w, r, http.StatusOK, "")
	}
}

func renderResults(app app.Web, w http.ResponseWriter, r *http.Request, status int, scheduleErr string) {
	id := chi.URLParam(r, "id")
	ctx, cancel := withTimeout(app, r)
	defer cancel()
	api := client(app, r)

	var (
		detail    *model.SurveyDetail
		responses []model.ResponseItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		detail, err = api.GetSurvey(gctx, id)
		return
	})
	g.Go(func() (err error) {
		responses, err = api.Responses(gctx, id)
		return
	})
	if err := g.Wait(); err != nil {
		apiFailure(app, w, r, "results.api", "Unable to load survey", err)
		return
	}

	s, err := apiclient.SurveyFromDetail(detail)
	if err != nil {
		log.Warnf("results.survey_config: %s", err)
		s = &model.Survey{}
	}
	detail.OpensAt = localTime(detail.OpensAt)
	detail.ClosesAt = localTime(detail.ClosesAt)

	p := views.ResultsPage{
		Page:          page(r),
		Survey:        detail,
		Questions:     s.Questions(),
		Total:         len(responses),
		ShareURL:      shareURL(app, detail.Slug),
		Search:        strings.TrimSpace(r.URL.Query().Get("q")),
		ScheduleError: scheduleErr,
	}
	needle := strings.ToLower(p.Search)
	for _, resp := range responses {
		if resp.IsDraft {
			p.InProgress++
		} else {
			p.Completed++
		}
		if needle == "" || strings.Contains(strings.ToLower(resp.Username), needle) {
			p.Responses = append(p.Responses, resp)
		}
	}
	app.Views.Render(w, status, "results", p)
}

func localTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	l := t.Local()
	return &l
}

// UpdateSchedule sets or clears the open window of a survey.
func UpdateSchedule(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := r.ParseForm(); err != nil {
			renderResults(app, w, r, http.StatusBadRequest, "Invalid request")
			return
		}

		opensAt, closesAt, msg := parseSchedule(r.PostForm.Get("opens_at"), r.PostForm.Get("closes_at"))
		if msg != "" {
			renderResults(app, w, r, http.StatusUnprocessableEntity, msg)
			return
		}

		ctx, cancel := withTimeout(app, r)
		defer cancel()
		_, err := client(app, r).UpdateSurvey(ctx, id, model.SurveyUpdate{
			OpensAt:       opensAt,
			ClosesAt:      closesAt,
			ClearOpensAt:  opensAt == nil,
			ClearClosesAt: closesAt == nil,
		})
		if err != nil {
			apiFailure(app, w, r, "update_schedule.api", "Unable to update schedule", err)
			return
		}
		http.Redirect(w, r, "/surveys/"+id+"?flash=scheduled", http.StatusSeeOther)
	}
}

// Export relays an export download from the API.
func Export(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		f := r.URL.Query().Get("format")
		if f == "" {
			f = "json"
		}

		dl, err := client(app, r).Export(r.Context(), id, f)
		if err != nil {
			apiFailure(app, w, r, "export.api", "Export failed", err)
			return
		}
		defer dl.Body.Close()

		if dl.ContentType != "" {
			w.Header().Set("Content-Type", dl.ContentType)
		}
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
		if _, err := io.Copy(w, dl.Body); err != nil {
			httpx.LogWriteError("export.copy", err)
		}
	}
}

func DuplicateSurvey(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ctx, cancel := withTimeout(app, r)
		defer cancel()

		dup, err := client(app, r).DuplicateSurvey(ctx, id, strings.TrimSpace(r.FormValue("title")))
		if err != nil {
			apiFailure(app, w, r, "duplicate_survey.api", "Unable to duplicate survey", err)
			return
		}
		http.Redirect(w, r, "/surveys/"+dup.ID+"?flash=duplicated", http.StatusSeeOther)
	}
}

func DeleteSurvey(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ctx, cancel := withTimeout(app, r)
		defer cancel()

		if err := client(app, r).DeleteSurvey(ctx, id); err != nil {
			apiFailure(app, w, r, "delete_survey.api", "Unable to delete survey", err)
			return
		}
		http.Redirect(w, r, "/?flash=deleted", http.StatusSeeOther)
	}
}
