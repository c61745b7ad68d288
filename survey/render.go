package survey

import (
	_ "embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mbolis/surveyflow/model"
)

//go:embed templates/widgets.html
var widgetTemplates string

// Renderer turns questions into HTML input widgets.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("widgets").Parse(widgetTemplates)
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl}, nil
}

type option struct {
	Value    string
	Selected bool
}

type widgetView struct {
	Question  model.Question
	Name      string
	Options   []option
	Choice    string
	Text      string
	Length    int
	MaxLength int
}

type questionView struct {
	Question model.Question
	Body     template.HTML
	Error    string
}

// Render produces the question block: label, widget for the question type
// and the error message, if any.
func (r *Renderer) Render(q model.Question, value any, errMsg string) (template.HTML, error) {
	name, view := widgetViewFor(WidgetFor(q), value)

	var body strings.Builder
	if err := r.tmpl.ExecuteTemplate(&body, name, view); err != nil {
		return "", fmt.Errorf("render %s: %w", q.QuestionID, err)
	}

	var out strings.Builder
	err := r.tmpl.ExecuteTemplate(&out, "question", questionView{
		Question: q,
		Body:     template.HTML(body.String()),
		Error:    errMsg,
	})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", q.QuestionID, err)
	}
	return template.HTML(out.String()), nil
}

func widgetViewFor(w Widget, value any) (string, widgetView) {
	q := w.Question()
	view := widgetView{Question: q, Name: q.QuestionID, MaxLength: MaxTextLength}
	v, _ := w.Coerce(value)

	switch w.(type) {
	case Scale:
		selected, _ := v.(int)
		for n := 1; n <= 5; n++ {
			view.Options = append(view.Options, option{strconv.Itoa(n), n == selected})
		}
		return string(model.Scale1To5), view

	case SingleChoice, Dropdown:
		selected, _ := v.(string)
		view.Options = options(q.Options, func(o string) bool { return o == selected })
		return string(q.Type), view

	case MultiCheckbox:
		selected, _ := v.([]string)
		view.Options = options(q.Options, func(o string) bool { return contains(selected, o) })
		return string(model.MultiCheckbox), view

	case ChoiceWithText:
		c, _ := v.(model.ChoiceAnswer)
		view.Options = options(q.Options, func(o string) bool { return o == c.Choice })
		view.Choice = c.Choice
		view.Text = c.Text
		view.Length = utf8.RuneCountInString(c.Text)
		return string(model.SingleChoiceWithText), view

	case OpenText:
		view.Text, _ = v.(string)
		view.Length = utf8.RuneCountInString(view.Text)
		return string(model.OpenText), view

	case Unknown:
		return "unknown", view
	}
	panic(fmt.Sprintf("survey: unhandled widget %T", w))
}

func options(opts []string, selected func(string) bool) []option {
	out := make([]option, len(opts))
	for i, o := range opts {
		out[i] = option{o, selected(o)}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
