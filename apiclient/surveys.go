package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/mbolis/surveyflow/model"
)

// wireSurvey accepts both survey shapes the API sends: vectors at the top
// level, or nested in the stored definition under "config".
type wireSurvey struct {
	ID          string         `json:"id"`
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	SurveyTitle string         `json:"survey_title"`
	Description string         `json:"description"`
	Config      *wireConfig    `json:"config"`
	Vectors     []model.Vector `json:"vectors"`
	OpensAt     *time.Time     `json:"opens_at"`
	ClosesAt    *time.Time     `json:"closes_at"`
	IsOpen      *bool          `json:"is_open"`
}

type wireConfig struct {
	SurveyTitle string         `json:"survey_title"`
	Description string         `json:"description"`
	Vectors     []model.Vector `json:"vectors"`
}

func (w wireSurvey) survey() *model.Survey {
	s := &model.Survey{
		ID:       w.ID,
		Slug:     w.Slug,
		OpensAt:  w.OpensAt,
		ClosesAt: w.ClosesAt,
		IsOpen:   w.IsOpen,
		Vectors:  w.Vectors,
	}
	var cfg wireConfig
	if w.Config != nil {
		cfg = *w.Config
	}
	if s.Vectors == nil {
		s.Vectors = cfg.Vectors
	}
	s.Title = firstNonEmpty(cfg.SurveyTitle, w.SurveyTitle, w.Title)
	s.Description = firstNonEmpty(cfg.Description, w.Description)
	return s
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

// ParseSurvey reads a survey payload in either shape into the canonical one.
func ParseSurvey(data []byte) (*model.Survey, error) {
	var w wireSurvey
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	return w.survey(), nil
}

// SurveyFromDetail turns an admin survey into the canonical shape.
func SurveyFromDetail(d *model.SurveyDetail) (*model.Survey, error) {
	w := wireSurvey{
		ID:          d.ID,
		Slug:        d.Slug,
		Title:       d.Title,
		Description: d.Description,
		OpensAt:     d.OpensAt,
		ClosesAt:    d.ClosesAt,
	}
	if len(d.Config) > 0 {
		if err := json.Unmarshal(d.Config, &w.Config); err != nil {
			return nil, fmt.Errorf("%w: survey config: %s", ErrMalformedResponse, err)
		}
	}
	return w.survey(), nil
}

// NewSurveyCreate wraps an uploaded definition into a create request.
func NewSurveyCreate(def model.SurveyDefinition) (model.SurveyCreate, error) {
	cfg, err := json.Marshal(def)
	if err != nil {
		return model.SurveyCreate{}, err
	}
	return model.SurveyCreate{
		Title:       def.SurveyTitle,
		Description: def.Description,
		Config:      cfg,
	}, nil
}

func surveyPath(idOrSlug string, rest ...string) string {
	p := "/surveys/" + url.PathEscape(idOrSlug)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// PublicSurvey fetches a survey for answering.
func (c *Client) PublicSurvey(ctx context.Context, slug string) (*model.Survey, error) {
	var w wireSurvey
	if err := c.do(ctx, http.MethodGet, surveyPath(slug, "public"), nil, &w); err != nil {
		return nil, err
	}
	return w.survey(), nil
}

// MyResponse fetches the caller's response; ErrNotFound when there is none.
func (c *Client) MyResponse(ctx context.Context, slug string) (*model.Response, error) {
	var resp model.Response
	if err := c.do(ctx, http.MethodGet, surveyPath(slug, "my-response"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Respond saves a draft (isDraft) or submits the caller's answers.
func (c *Client) Respond(ctx context.Context, slug string, answers model.Answers, isDraft bool) (*model.Response, error) {
	if answers == nil {
		answers = model.Answers{}
	}
	body := model.RespondRequest{Answers: answers, IsDraft: isDraft}
	var resp model.Response
	if err := c.do(ctx, http.MethodPost, surveyPath(slug, "respond"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListSurveys(ctx context.Context) ([]model.SurveyItem, error) {
	var items []model.SurveyItem
	err := c.do(ctx, http.MethodGet, "/surveys", nil, &items)
	return items, err
}

// ActiveSurveys lists the surveys open to respondents.
func (c *Client) ActiveSurveys(ctx context.Context) ([]model.SurveyItem, error) {
	var items []model.SurveyItem
	err := c.do(ctx, http.MethodGet, "/surveys/active", nil, &items)
	return items, err
}

func (c *Client) CreateSurvey(ctx context.Context, create model.SurveyCreate) (*model.SurveyDetail, error) {
	var d model.SurveyDetail
	if err := c.do(ctx, http.MethodPost, "/surveys", create, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) GetSurvey(ctx context.Context, id string) (*model.SurveyDetail, error) {
	var d model.SurveyDetail
	if err := c.do(ctx, http.MethodGet, surveyPath(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) UpdateSurvey(ctx context.Context, id string, update model.SurveyUpdate) (*model.SurveyDetail, error) {
	var d model.SurveyDetail
	if err := c.do(ctx, http.MethodPatch, surveyPath(id), update, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) DeleteSurvey(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, surveyPath(id), nil, nil)
}

func (c *Client) DuplicateSurvey(ctx context.Context, id, title string) (*model.SurveyDetail, error) {
	body := struct {
		Title string `json:"title,omitempty"`
	}{title}
	var d model.SurveyDetail
	if err := c.do(ctx, http.MethodPost, surveyPath(id, "duplicate"), body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) Responses(ctx context.Context, id string) ([]model.ResponseItem, error) {
	var items []model.ResponseItem
	err := c.do(ctx, http.MethodGet, surveyPath(id, "responses"), nil, &items)
	return items, err
}

// Download is a streamed export. The caller closes Body.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
}

// Export streams the responses of a survey in the given format.
func (c *Client) Export(ctx context.Context, id, format string) (*Download, error) {
	path := surveyPath(id, "export") + "?format=" + url.QueryEscape(format)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Del("Accept")
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}

	d := &Download{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    fmt.Sprintf("survey-%s.%s", id, format),
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		d.Filename = params["filename"]
	}
	return d, nil
}
