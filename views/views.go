// Package views renders the HTML pages of the web frontend.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/mbolis/surveyflow/format"
	"github.com/mbolis/surveyflow/httpx"
	"github.com/mbolis/surveyflow/model"
	"github.com/mbolis/surveyflow/survey"
)

//go:embed templates
var templateFS embed.FS

var pageNames = []string{
	"dashboard",
	"respondent_home",
	"create",
	"results",
	"respond",
	"thanks",
	"login",
	"error",
}

type Views struct {
	pages map[string]*template.Template
}

// New parses every page. now is used for relative times and statuses.
func New(widgets *survey.Renderer, now func() time.Time) (*Views, error) {
	funcs := template.FuncMap{
		"date":          func(t any) string { return format.Date(timeOf(t)) },
		"datetime":      func(t any) string { return format.DateTime(timeOf(t)) },
		"datetimeLocal": func(t any) string { return format.DateTimeLocal(timeOf(t)) },
		"relative": func(t any) string {
			return format.RelativeTime(timeOf(t), now())
		},
		"status": func(opensAt, closesAt *time.Time) format.Status {
			return format.SurveyStatus(opensAt, closesAt, now())
		},
		"badge": format.StatusBadgeClass,
		"question": func(q model.Question, answers model.Answers, errs survey.Errors) (template.HTML, error) {
			return widgets.Render(q, answers[q.QuestionID], errs[q.QuestionID])
		},
		"answer": Answer,
	}

	v := &Views{pages: map[string]*template.Template{}}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

// Render writes the page with the given status. The page is rendered into
// a buffer first so a template error still yields a clean 500.
func (v *Views) Render(w http.ResponseWriter, status int, name string, data any) {
	t, ok := v.pages[name]
	if !ok {
		httpx.LogInternalError(w, "views.render", fmt.Errorf("no page %q", name))
		return
	}

	buf := httpx.NewResponseBuffer()
	buf.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteHeader(status)
	if err := t.ExecuteTemplate(buf, "layout", data); err != nil {
		httpx.LogInternalError(w, "views.render."+name, err)
		return
	}
	if err := buf.Flush(w); err != nil {
		httpx.LogWriteError("views.render.flush", err)
	}
}

func timeOf(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	}
	return nil
}

// Answer formats a stored answer for the results table.
func Answer(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int(v)) {
			return fmt.Sprintf("%d", int(v))
		}
		return fmt.Sprintf("%g", v)
	case int:
		return fmt.Sprintf("%d", v)
	case []string:
		return join(v)
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = Answer(e)
		}
		return join(parts)
	case model.ChoiceAnswer:
		return choiceAnswer(v.Choice, v.Text)
	case map[string]any:
		choice, _ := v["choice"].(string)
		text, _ := v["text"].(string)
		return choiceAnswer(choice, text)
	}
	return fmt.Sprint(v)
}

func choiceAnswer(choice, text string) string {
	if text == "" {
		return choice
	}
	return choice + ": " + text
}

func join(parts []string) string {
	return strings.Join(parts, ", ")
}
