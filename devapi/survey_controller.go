package devapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gofrs/uuid"

	"github.com/mbolis/surveyflow/app"
	"github.com/mbolis/surveyflow/httpx"
	"github.com/mbolis/surveyflow/log"
	"github.com/mbolis/surveyflow/model"
	"github.com/mbolis/surveyflow/survey"
)

const maxTitleLen = 500

const surveyColumns = `
	s.id, s.slug, s.title, s.description, s.config, s.created_by,
	s.opens_at, s.closes_at, s.created_at, s.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSurvey(row rowScanner) (*model.SurveyDetail, error) {
	d := model.SurveyDetail{}
	var config string
	var opensAt, closesAt sql.NullTime
	err := row.Scan(
		&d.ID, &d.Slug, &d.Title, &d.Description, &config, &d.CreatedBy,
		&opensAt, &closesAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Config = json.RawMessage(config)
	d.OpensAt = timePtr(opensAt)
	d.ClosesAt = timePtr(closesAt)
	return &d, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func newID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func now(app app.API) time.Time {
	if app.Now == nil {
		return time.Now().UTC()
	}
	return app.Now().UTC()
}

// checkTitle returns a message when title is not acceptable.
func checkTitle(title string) string {
	switch {
	case strings.TrimSpace(title) == "":
		return "title: must not be empty"
	case len(title) > maxTitleLen:
		return fmt.Sprintf("title: must be at most %d characters", maxTitleLen)
	}
	return ""
}

// ownSurvey loads a live survey of the current admin, answering 404 when
// there is none.
func ownSurvey(app app.API, w http.ResponseWriter, r *http.Request) (*model.SurveyDetail, bool) {
	id := chi.URLParam(r, "id")
	d, err := scanSurvey(app.QueryRowContext(r.Context(), `
		SELECT `+surveyColumns+`
		FROM survey s
		WHERE s.id = ?
			AND s.created_by = ?
			AND s.deleted_at IS NULL`,
		id,
		currentUser(r.Context()).ID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		httpx.LogDetail(w, r, http.StatusNotFound, log.DebugLevel, "get_survey", "Survey not found")
		return nil, false
	}
	if err != nil {
		httpx.LogInternalError(w, "db.get_survey.scan", err)
		return nil, false
	}
	return d, true
}

func CreateSurvey(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		create := model.SurveyCreate{}
		err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodySize), &create)
		if err != nil {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "Invalid request body")
			return
		}

		var problems []string
		if msg := checkTitle(create.Title); msg != "" {
			problems = append(problems, msg)
		}
		def := model.SurveyDefinition{}
		if err := json.Unmarshal(create.Config, &def); err != nil {
			problems = append(problems, "config: must be a survey definition object")
		} else {
			problems = append(problems, survey.Messages(survey.CheckDefinition(def))...)
		}
		if len(problems) > 0 {
			httpx.LogDetailList(w, r, http.StatusUnprocessableEntity, "create_survey.validate", problems)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		slug, err := uniqueSlug(r.Context(), tx, GenerateSlug(create.Title))
		if err != nil {
			httpx.LogInternalError(w, "db.create_survey.slug", err)
			return
		}
		id, err := newID()
		if err != nil {
			httpx.LogInternalError(w, "create_survey.id", err)
			return
		}

		t := now(app)
		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO survey (id, slug, title, description, config, created_by, opens_at, closes_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, slug, create.Title, create.Description, string(create.Config), currentUser(r.Context()).ID,
			nullTime(create.OpensAt), nullTime(create.ClosesAt), t, t,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.create_survey.insert", err)
			return
		}

		d, err := scanSurvey(tx.QueryRowContext(r.Context(), "SELECT "+surveyColumns+" FROM survey s WHERE s.id = ?", id))
		if err != nil {
			httpx.LogInternalError(w, "db.create_survey.reload", err)
			return
		}
		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.create_survey.commit", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, d)
	}
}

func scanItems(rows *sql.Rows) ([]model.SurveyItem, error) {
	items := []model.SurveyItem{}
	for rows.Next() {
		it := model.SurveyItem{}
		var opensAt, closesAt sql.NullTime
		err := rows.Scan(
			&it.ID, &it.Slug, &it.Title, &it.Description,
			&opensAt, &closesAt, &it.CreatedAt, &it.UpdatedAt, &it.ResponseCount,
		)
		if err != nil {
			return nil, err
		}
		it.OpensAt = timePtr(opensAt)
		it.ClosesAt = timePtr(closesAt)
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListSurveys lists the current admin's surveys, newest first.
func ListSurveys(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT
				s.id, s.slug, s.title, s.description,
				s.opens_at, s.closes_at, s.created_at, s.updated_at,
				COUNT(x.id)
			FROM survey s
			LEFT OUTER JOIN response x ON (s.id = x.survey_id)
			WHERE s.created_by = ?
				AND s.deleted_at IS NULL
			GROUP BY s.id
			ORDER BY s.created_at DESC`,
			currentUser(r.Context()).ID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_surveys", err)
			return
		}
		defer rows.Close()

		items, err := scanItems(rows)
		if err != nil {
			httpx.LogInternalError(w, "db.get_surveys.scan", err)
			return
		}
		render.JSON(w, r, items)
	}
}

// ActiveSurveys lists every survey currently accepting responses.
func ActiveSurveys(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT
				s.id, s.slug, s.title, s.description,
				s.opens_at, s.closes_at, s.created_at, s.updated_at,
				0
			FROM survey s
			WHERE s.deleted_at IS NULL
			ORDER BY s.created_at DESC`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_active_surveys", err)
			return
		}
		defer rows.Close()

		items, err := scanItems(rows)
		if err != nil {
			httpx.LogInternalError(w, "db.get_active_surveys.scan", err)
			return
		}

		t := now(app)
		active := []model.SurveyItem{}
		for _, it := range items {
			if isOpen(it.OpensAt, it.ClosesAt, t) {
				active = append(active, it)
			}
		}
		render.JSON(w, r, active)
	}
}

func GetSurvey(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := ownSurvey(app, w, r)
		if !ok {
			return
		}
		render.JSON(w, r, d)
	}
}

// UpdateSurvey changes the fields present in the body; an explicit null
// clears a schedule bound.
func UpdateSurvey(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := ownSurvey(app, w, r)
		if !ok {
			return
		}

		update := model.SurveyUpdate{}
		err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodySize), &update)
		if err != nil {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "Invalid request body")
			return
		}

		if update.Title != nil {
			if msg := checkTitle(*update.Title); msg != "" {
				httpx.LogDetailList(w, r, http.StatusUnprocessableEntity, "update_survey.validate", []string{msg})
				return
			}
			d.Title = *update.Title
		}
		if update.Description != nil {
			d.Description = *update.Description
		}
		switch {
		case update.OpensAt != nil:
			d.OpensAt = update.OpensAt
		case update.ClearOpensAt:
			d.OpensAt = nil
		}
		switch {
		case update.ClosesAt != nil:
			d.ClosesAt = update.ClosesAt
		case update.ClearClosesAt:
			d.ClosesAt = nil
		}
		d.UpdatedAt = now(app)

		_, err = app.ExecContext(r.Context(), `
			UPDATE survey
			SET
				title = ?,
				description = ?,
				opens_at = ?,
				closes_at = ?,
				updated_at = ?
			WHERE id = ?`,
			d.Title,
			d.Description,
			nullTime(d.OpensAt),
			nullTime(d.ClosesAt),
			d.UpdatedAt,
			d.ID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_survey", err)
			return
		}

		render.JSON(w, r, d)
	}
}

// DeleteSurvey hides a survey; its responses are kept.
func DeleteSurvey(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := ownSurvey(app, w, r)
		if !ok {
			return
		}

		_, err := app.ExecContext(r.Context(), `
			UPDATE survey SET deleted_at = ? WHERE id = ?`,
			now(app),
			d.ID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_survey", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type duplicateRequest struct {
	Title string `json:"title"`
}

// DuplicateSurvey copies a survey's definition into a new, unscheduled one.
func DuplicateSurvey(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		original, ok := ownSurvey(app, w, r)
		if !ok {
			return
		}

		req := duplicateRequest{}
		if r.ContentLength != 0 {
			err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodySize), &req)
			if err != nil {
				httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "Invalid request body")
				return
			}
		}
		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = original.Title + " (Copy)"
		}
		if msg := checkTitle(title); msg != "" {
			httpx.LogDetailList(w, r, http.StatusUnprocessableEntity, "duplicate_survey.validate", []string{msg})
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		slug, err := uniqueSlug(r.Context(), tx, GenerateSlug(original.Title+" copy"))
		if err != nil {
			httpx.LogInternalError(w, "db.duplicate_survey.slug", err)
			return
		}
		id, err := newID()
		if err != nil {
			httpx.LogInternalError(w, "duplicate_survey.id", err)
			return
		}

		t := now(app)
		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO survey (id, slug, title, description, config, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, slug, title, original.Description, string(original.Config), currentUser(r.Context()).ID, t, t,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.duplicate_survey.insert", err)
			return
		}
		d, err := scanSurvey(tx.QueryRowContext(r.Context(), "SELECT "+surveyColumns+" FROM survey s WHERE s.id = ?", id))
		if err != nil {
			httpx.LogInternalError(w, "db.duplicate_survey.reload", err)
			return
		}
		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.duplicate_survey.commit", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, d)
	}
}

func surveyResponses(app app.API, r *http.Request, surveyID, order string) ([]model.ResponseItem, error) {
	rows, err := app.QueryContext(r.Context(), `
		SELECT
			x.id, x.user_id, u.username, x.answers, x.is_draft,
			x.submitted_at, x.created_at, x.updated_at
		FROM response x
		INNER JOIN user u ON (u.id = x.user_id)
		WHERE x.survey_id = ?
		ORDER BY x.created_at `+order,
		surveyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.ResponseItem{}
	for rows.Next() {
		it := model.ResponseItem{}
		var answers string
		var submittedAt sql.NullTime
		err = rows.Scan(
			&it.ID, &it.UserID, &it.Username, &answers, &it.IsDraft,
			&submittedAt, &it.CreatedAt, &it.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answers), &it.Answers); err != nil {
			return nil, fmt.Errorf("response %s: %w", it.ID, err)
		}
		it.SubmittedAt = timePtr(submittedAt)
		items = append(items, it)
	}
	return items, rows.Err()
}

// SurveyResponses lists the responses of a survey, newest first.
func SurveyResponses(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := ownSurvey(app, w, r)
		if !ok {
			return
		}

		items, err := surveyResponses(app, r, d.ID, "DESC")
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}
		render.JSON(w, r, items)
	}
}

// ExportResponses dumps the responses of a survey as a JSON attachment.
func ExportResponses(app app.API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := ownSurvey(app, w, r)
		if !ok {
			return
		}

		format := r.URL.Query().Get("format")
		if format == "" {
			format = "json"
		}
		if format != "json" {
			httpx.LogDetail(w, r, http.StatusBadRequest, log.DebugLevel, "export.format", "Unsupported export format: "+format)
			return
		}

		items, err := surveyResponses(app, r, d.ID, "ASC")
		if err != nil {
			httpx.LogInternalError(w, "db.export_responses", err)
			return
		}
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			httpx.LogInternalError(w, "export.encode", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-responses.json", d.Slug))
		if _, err := w.Write(data); err != nil {
			httpx.LogWriteError("export.write", err)
		}
	}
}
