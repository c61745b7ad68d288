package devapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/surveyflow/app"
	"github.com/mbolis/surveyflow/httpx"
	"github.com/mbolis/surveyflow/log"
	"github.com/mbolis/surveyflow/model"
)

// isOpen reports whether now falls inside the survey's schedule. Missing
// bounds are open-ended.
func isOpen(opensAt, closesAt *time.Time, now time.Time) bool {
	if opensAt != nil && now.Before(*opensAt) {
		return false
	}
	if closesAt != nil && now.After(*closesAt) {
		return false
	}
	return true
}

type publicSurvey struct {
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Config      json.RawMessage `json:"config"`
	OpensAt     *time.Time      `json:"opens_at"`
	ClosesAt    *time.Time      `json:"closes_at"`
	IsOpen      bool            `json:"is_open"`
}

// liveSurvey loads a survey by slug, answering 404 when it does not exist
// or was deleted.
func liveSurvey(app app.API, w http.ResponseWriter, r *http.Request) (*model.SurveyDetail, bool) {
	slug := chi.URLParam(r, "slug")
	d, err := scanSurvey(app.QueryRowContext(r.Context(), `
		SELECT `+surveyColumns+`
		FROM survey s
		WHERE s.slug = ?
			AND s.deleted_at IS NULL`,
		slug,
	))
	if errors.Is(err, sql.ErrNoRows) {
		httpx.LogDetail(w, r, http.StatusNotFound, log.DebugLevel, "get_survey_by_slug", "Survey not found")
		return nil, false
	}
	if err != nil {
		httpx.LogInternalError(w, "db.get_survey_by_slug.scan", err)
		return nil, false
	}
	return d, true
}

// PublicSurvey serves a survey for answering; no sign-in needed.
func PublicSurvey(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := liveSurvey(app, w, r)
		if !ok {
			return
		}

		render.JSON(w, r, publicSurvey{
			Slug:        d.Slug,
			Title:       d.Title,
			Description: d.Description,
			Config:      d.Config,
			OpensAt:     d.OpensAt,
			ClosesAt:    d.ClosesAt,
			IsOpen:      isOpen(d.OpensAt, d.ClosesAt, now(app)),
		})
	}
}

type respondRequest struct {
	Answers model.Answers `json:"answers"`
	IsDraft *bool         `json:"is_draft"`
}

type storedResponse struct {
	ID          string        `json:"id"`
	SurveyID    string        `json:"survey_id"`
	UserID      string        `json:"user_id"`
	Answers     model.Answers `json:"answers"`
	IsDraft     bool          `json:"is_draft"`
	SubmittedAt *time.Time    `json:"submitted_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func loadResponse(r *http.Request, q queryer, surveyID, userID string) (*storedResponse, error) {
	x := storedResponse{}
	var answers string
	var submittedAt sql.NullTime
	err := q.QueryRowContext(r.Context(), `
		SELECT id, survey_id, user_id, answers, is_draft, submitted_at, created_at, updated_at
		FROM response
		WHERE survey_id = ?
			AND user_id = ?`,
		surveyID,
		userID,
	).Scan(&x.ID, &x.SurveyID, &x.UserID, &answers, &x.IsDraft, &submittedAt, &x.CreatedAt, &x.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(answers), &x.Answers); err != nil {
		return nil, err
	}
	x.SubmittedAt = timePtr(submittedAt)
	return &x, nil
}

// Respond saves the caller's draft or submission. A submitted response is
// final, and a survey outside its schedule takes no answers.
func Respond(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := liveSurvey(app, w, r)
		if !ok {
			return
		}

		req := respondRequest{}
		err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodySize), &req)
		if err != nil {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "Invalid request body")
			return
		}
		if req.Answers == nil {
			req.Answers = model.Answers{}
		}
		isDraft := req.IsDraft == nil || *req.IsDraft

		t := now(app)
		if !isOpen(d.OpensAt, d.ClosesAt, t) {
			httpx.LogDetail(w, r, http.StatusForbidden, log.DebugLevel, "respond.closed", "Survey is not currently accepting responses")
			return
		}

		answers, err := json.Marshal(req.Answers)
		if err != nil {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "respond.answers", "Invalid answers")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		user := currentUser(r.Context())
		x, err := loadResponse(r, tx, d.ID, user.ID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id, err := newID()
			if err != nil {
				httpx.LogInternalError(w, "respond.id", err)
				return
			}
			x = &storedResponse{ID: id, SurveyID: d.ID, UserID: user.ID, CreatedAt: t}
			_, err = tx.ExecContext(r.Context(), `
				INSERT INTO response (id, survey_id, user_id, answers, is_draft, created_at, updated_at)
				VALUES (?, ?, ?, '{}', 1, ?, ?)`,
				x.ID, x.SurveyID, x.UserID, t, t,
			)
			if err != nil {
				httpx.LogInternalError(w, "db.respond.insert", err)
				return
			}
		case err != nil:
			httpx.LogInternalError(w, "db.respond.get", err)
			return
		case !x.IsDraft:
			httpx.LogDetail(w, r, http.StatusForbidden, log.DebugLevel, "respond.submitted", "Cannot modify an already submitted response")
			return
		}

		x.Answers = req.Answers
		x.IsDraft = isDraft
		x.UpdatedAt = t
		if !isDraft {
			x.SubmittedAt = &t
		}
		_, err = tx.ExecContext(r.Context(), `
			UPDATE response
			SET
				answers = ?,
				is_draft = ?,
				submitted_at = ?,
				updated_at = ?
			WHERE id = ?`,
			string(answers),
			x.IsDraft,
			nullTime(x.SubmittedAt),
			x.UpdatedAt,
			x.ID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.respond.update", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.respond.commit", err)
			return
		}

		render.JSON(w, r, x)
	}
}

// MyResponse serves the caller's own response to a survey.
func MyResponse(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := liveSurvey(app, w, r)
		if !ok {
			return
		}

		x, err := loadResponse(r, app.DB, d.ID, currentUser(r.Context()).ID)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogDetail(w, r, http.StatusNotFound, log.DebugLevel, "my_response", "No response found for this survey")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.my_response", err)
			return
		}

		render.JSON(w, r, model.Response{
			Answers:     x.Answers,
			IsDraft:     x.IsDraft,
			SubmittedAt: x.SubmittedAt,
			UpdatedAt:   x.UpdatedAt,
		})
	}
}
