package survey

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mbolis/surveyflow/model"
)

// MaxTextLength caps free-text answers, in characters.
const MaxTextLength = 1000

var (
	ErrUnknownType  = errors.New("unknown question type")
	ErrInvalidInput = errors.New("invalid input")
)

// Op is the kind of change a respondent makes on a widget.
type Op string

const (
	OpSelect Op = "select"
	OpToggle Op = "toggle"
	OpChoice Op = "choice"
	OpText   Op = "text"
)

// Input is one interaction with a widget, as sent by the respond page.
type Input struct {
	Op      Op     `json:"op"`
	Value   string `json:"value"`
	Checked bool   `json:"checked,omitempty"`
}

// Widget is the input behavior of one question type. The set of
// implementations is closed: WidgetFor is the only constructor.
type Widget interface {
	Question() model.Question
	// Filled reports whether v satisfies the required check.
	Filled(v any) bool
	// Coerce converts decoded JSON or Go values to the canonical value shape.
	Coerce(v any) (any, bool)
	// Apply returns the new value after the input; nil means absent.
	Apply(current any, in Input) (any, error)
	// FromForm reads the value from a form post; false when untouched.
	FromForm(vals url.Values) (any, bool)

	widget()
}

type base struct{ q model.Question }

func (b base) Question() model.Question { return b.q }
func (base) widget()                    {}

type (
	Scale          struct{ base }
	SingleChoice   struct{ base }
	MultiCheckbox  struct{ base }
	Dropdown       struct{ base }
	ChoiceWithText struct{ base }
	OpenText       struct{ base }
	// Unknown stands in for a type this build doesn't know, so one bad
	// question doesn't break the rest of the survey.
	Unknown struct{ base }
)

func WidgetFor(q model.Question) Widget {
	b := base{q}
	switch q.Type {
	case model.Scale1To5:
		return Scale{b}
	case model.SingleChoice:
		return SingleChoice{b}
	case model.MultiCheckbox:
		return MultiCheckbox{b}
	case model.Dropdown:
		return Dropdown{b}
	case model.SingleChoiceWithText:
		return ChoiceWithText{b}
	case model.OpenText:
		return OpenText{b}
	default:
		return Unknown{b}
	}
}

// scale_1_5

func (Scale) Filled(v any) bool {
	n, ok := asNumber(v)
	return ok && n >= 1 && n <= 5
}

func (Scale) Coerce(v any) (any, bool) {
	n, ok := asNumber(v)
	if !ok {
		return nil, false
	}
	if n == float64(int(n)) {
		return int(n), true
	}
	return n, true
}

func (w Scale) Apply(_ any, in Input) (any, error) {
	if in.Op != OpSelect {
		return nil, opError(w.q, in.Op)
	}
	return parseScale(in.Value)
}

func (w Scale) FromForm(vals url.Values) (any, bool) {
	if !vals.Has(w.q.QuestionID) {
		return nil, false
	}
	n, err := parseScale(vals.Get(w.q.QuestionID))
	if err != nil {
		return nil, false
	}
	return n, true
}

func parseScale(s string) (any, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 5 {
		return nil, fmt.Errorf("%w: scale value %q", ErrInvalidInput, s)
	}
	return n, nil
}

// single_choice

func (SingleChoice) Filled(v any) bool { return filledString(v) }

func (SingleChoice) Coerce(v any) (any, bool) { return coerceString(v) }

func (w SingleChoice) Apply(_ any, in Input) (any, error) {
	if in.Op != OpSelect {
		return nil, opError(w.q, in.Op)
	}
	if err := checkOption(w.q, in.Value); err != nil {
		return nil, err
	}
	return in.Value, nil
}

func (w SingleChoice) FromForm(vals url.Values) (any, bool) {
	if !vals.Has(w.q.QuestionID) {
		return nil, false
	}
	v := vals.Get(w.q.QuestionID)
	if checkOption(w.q, v) != nil {
		return nil, false
	}
	return v, true
}

// multi_checkbox

func (MultiCheckbox) Filled(v any) bool {
	s, ok := asStrings(v)
	return ok && len(s) > 0
}

func (MultiCheckbox) Coerce(v any) (any, bool) {
	s, ok := asStrings(v)
	if !ok {
		return nil, false
	}
	return s, true
}

// Apply toggles one option. Selected options keep the order in which the
// respondent checked them.
func (w MultiCheckbox) Apply(current any, in Input) (any, error) {
	if in.Op != OpToggle {
		return nil, opError(w.q, in.Op)
	}
	if err := checkOption(w.q, in.Value); err != nil {
		return nil, err
	}
	selected, _ := asStrings(current)

	next := make([]string, 0, len(selected)+1)
	found := false
	for _, s := range selected {
		if s == in.Value {
			found = true
			if !in.Checked {
				continue
			}
		}
		next = append(next, s)
	}
	if in.Checked && !found {
		next = append(next, in.Value)
	}
	return next, nil
}

func (w MultiCheckbox) FromForm(vals url.Values) (any, bool) {
	picked, ok := vals[w.q.QuestionID]
	if !ok {
		return nil, false
	}
	for _, v := range picked {
		if checkOption(w.q, v) != nil {
			return nil, false
		}
	}
	return append([]string{}, picked...), true
}

// dropdown

func (Dropdown) Filled(v any) bool { return filledString(v) }

func (Dropdown) Coerce(v any) (any, bool) { return coerceString(v) }

func (w Dropdown) Apply(_ any, in Input) (any, error) {
	if in.Op != OpSelect {
		return nil, opError(w.q, in.Op)
	}
	if in.Value == "" {
		return nil, nil
	}
	if err := checkOption(w.q, in.Value); err != nil {
		return nil, err
	}
	return in.Value, nil
}

func (w Dropdown) FromForm(vals url.Values) (any, bool) {
	v := vals.Get(w.q.QuestionID)
	if v == "" || checkOption(w.q, v) != nil {
		return nil, false
	}
	return v, true
}

// single_choice_with_text

// Filled only looks at the choice; the text is never required.
func (ChoiceWithText) Filled(v any) bool {
	c, ok := asChoice(v)
	return ok && strings.TrimSpace(c.Choice) != ""
}

func (ChoiceWithText) Coerce(v any) (any, bool) {
	c, ok := asChoice(v)
	if !ok {
		return nil, false
	}
	c.Text = Truncate(c.Text)
	return c, true
}

func (w ChoiceWithText) Apply(current any, in Input) (any, error) {
	c, _ := asChoice(current)
	switch in.Op {
	case OpChoice:
		if err := checkOption(w.q, in.Value); err != nil {
			return nil, err
		}
		c.Choice = in.Value
	case OpText:
		c.Text = Truncate(in.Value)
	default:
		return nil, opError(w.q, in.Op)
	}
	return c, nil
}

func (w ChoiceWithText) FromForm(vals url.Values) (any, bool) {
	choice := vals.Get(w.q.QuestionID)
	text := vals.Get(w.q.QuestionID + ".text")
	if choice == "" && text == "" {
		return nil, false
	}
	if choice != "" && checkOption(w.q, choice) != nil {
		return nil, false
	}
	return model.ChoiceAnswer{Choice: choice, Text: Truncate(text)}, true
}

// open_text

func (OpenText) Filled(v any) bool { return filledString(v) }

func (OpenText) Coerce(v any) (any, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	return Truncate(s), true
}

func (w OpenText) Apply(_ any, in Input) (any, error) {
	if in.Op != OpText {
		return nil, opError(w.q, in.Op)
	}
	return Truncate(in.Value), nil
}

func (w OpenText) FromForm(vals url.Values) (any, bool) {
	if !vals.Has(w.q.QuestionID) {
		return nil, false
	}
	return Truncate(vals.Get(w.q.QuestionID)), true
}

// unknown

func (Unknown) Filled(v any) bool {
	if s, ok := v.(string); ok {
		return s != ""
	}
	return v != nil
}

func (Unknown) Coerce(v any) (any, bool) { return v, v != nil }

func (w Unknown) Apply(any, Input) (any, error) {
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, w.q.Type)
}

func (Unknown) FromForm(url.Values) (any, bool) { return nil, false }

// Truncate cuts s to MaxTextLength characters.
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxTextLength {
		return s
	}
	return string([]rune(s)[:MaxTextLength])
}

func opError(q model.Question, op Op) error {
	return fmt.Errorf("%w: op %q on %s question", ErrInvalidInput, op, q.Type)
}

func checkOption(q model.Question, v string) error {
	if len(q.Options) == 0 {
		return nil
	}
	for _, o := range q.Options {
		if o == v {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not an option of %s", ErrInvalidInput, v, q.QuestionID)
}

func filledString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

func coerceString(v any) (any, bool) {
	s, ok := v.(string)
	return s, ok
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func asStrings(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return append([]string{}, s...), true
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}

func asChoice(v any) (model.ChoiceAnswer, bool) {
	switch c := v.(type) {
	case model.ChoiceAnswer:
		return c, true
	case *model.ChoiceAnswer:
		if c == nil {
			return model.ChoiceAnswer{}, false
		}
		return *c, true
	case map[string]any:
		choice, _ := c["choice"].(string)
		text, _ := c["text"].(string)
		return model.ChoiceAnswer{Choice: choice, Text: text}, true
	}
	return model.ChoiceAnswer{}, false
}
