package survey

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/mbolis/surveyflow/model"
)

func optional() *bool {
	f := false
	return &f
}

func sampleSurvey() *model.Survey {
	return &model.Survey{
		Slug:  "team-health",
		Title: "Team health",
		Vectors: []model.Vector{
			{
				VectorID:   "v1",
				VectorName: "Workload",
				Questions: []model.Question{
					{QuestionID: "q_scale", Question: "How busy?", Type: model.Scale1To5},
					{QuestionID: "q_single", Question: "Pick one", Type: model.SingleChoice, Options: []string{"a", "b"}},
					{QuestionID: "q_multi", Question: "Pick many", Type: model.MultiCheckbox, Options: []string{"x", "y", "z"}},
				},
			},
			{
				VectorID:   "v2",
				VectorName: "Tools",
				Questions: []model.Question{
					{QuestionID: "q_drop", Question: "Editor", Type: model.Dropdown, Options: []string{"vim", "emacs"}},
					{QuestionID: "q_why", Question: "Why?", Type: model.SingleChoiceWithText, Options: []string{"yes", "no"}},
					{QuestionID: "q_open", Question: "Anything else?", Type: model.OpenText},
					{QuestionID: "q_opt", Question: "Optional", Type: model.OpenText, Required: optional()},
				},
			},
		},
	}
}

func filledAnswers() model.Answers {
	return model.Answers{
		"q_scale":  3,
		"q_single": "a",
		"q_multi":  []string{"y"},
		"q_drop":   "vim",
		"q_why":    model.ChoiceAnswer{Choice: "yes"},
		"q_open":   "fine",
	}
}

func TestValidate(t *testing.T) {
	s := sampleSurvey()

	t.Run("empty answers flag every required question", func(t *testing.T) {
		got := Validate(s, model.Answers{})
		want := Errors{
			"q_scale":  RequiredMessage,
			"q_single": RequiredMessage,
			"q_multi":  RequiredMessage,
			"q_drop":   RequiredMessage,
			"q_why":    RequiredMessage,
			"q_open":   RequiredMessage,
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Validate() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("fully filled answers pass", func(t *testing.T) {
		assert.Empty(t, Validate(s, filledAnswers()))
	})

	t.Run("json decoded shapes pass", func(t *testing.T) {
		answers := model.Answers{
			"q_scale":  float64(5),
			"q_single": "b",
			"q_multi":  []any{"x", "z"},
			"q_drop":   "emacs",
			"q_why":    map[string]any{"choice": "no", "text": ""},
			"q_open":   "ok",
		}
		assert.Empty(t, Validate(s, answers))
	})

	t.Run("is idempotent and leaves inputs alone", func(t *testing.T) {
		answers := model.Answers{"q_scale": 9, "q_open": "  "}
		first := Validate(s, answers)
		second := Validate(s, answers)
		assert.Equal(t, first, second)
		assert.Equal(t, model.Answers{"q_scale": 9, "q_open": "  "}, answers)
	})

	t.Run("nil survey", func(t *testing.T) {
		assert.Empty(t, Validate(nil, filledAnswers()))
	})
}

func TestValidateFilledPredicates(t *testing.T) {
	tests := []struct {
		name   string
		typ    model.QuestionType
		value  any
		filled bool
	}{
		{"scale in range", model.Scale1To5, 1, true},
		{"scale upper bound", model.Scale1To5, 5, true},
		{"scale zero", model.Scale1To5, 0, false},
		{"scale above range", model.Scale1To5, 6, false},
		{"scale as string", model.Scale1To5, "3", false},
		{"single blank", model.SingleChoice, "   ", false},
		{"single set", model.SingleChoice, "a", true},
		{"single wrong type", model.SingleChoice, 1, false},
		{"dropdown empty", model.Dropdown, "", false},
		{"multi empty", model.MultiCheckbox, []string{}, false},
		{"multi one", model.MultiCheckbox, []string{"x"}, true},
		{"multi not a list", model.MultiCheckbox, "x", false},
		{"choice text only", model.SingleChoiceWithText, model.ChoiceAnswer{Text: "because"}, false},
		{"choice blank", model.SingleChoiceWithText, model.ChoiceAnswer{Choice: "  "}, false},
		{"choice set without text", model.SingleChoiceWithText, model.ChoiceAnswer{Choice: "yes"}, true},
		{"choice as plain string", model.SingleChoiceWithText, "yes", false},
		{"open blank", model.OpenText, "\n\t", false},
		{"open set", model.OpenText, "hi", true},
		{"unknown empty string", "rating_10", "", false},
		{"unknown any value", "rating_10", 7, true},
		{"nil value", model.OpenText, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &model.Survey{Vectors: []model.Vector{{
				VectorID:  "v",
				Questions: []model.Question{{QuestionID: "q", Type: tt.typ}},
			}}}
			errs := Validate(s, model.Answers{"q": tt.value})
			if tt.filled {
				assert.Empty(t, errs)
			} else {
				assert.Equal(t, Errors{"q": RequiredMessage}, errs)
			}
		})
	}
}

func TestValidateSkipsOptionalQuestions(t *testing.T) {
	s := &model.Survey{Vectors: []model.Vector{{
		VectorID: "v",
		Questions: []model.Question{
			{QuestionID: "q", Type: model.OpenText, Required: optional()},
		},
	}}}
	assert.Empty(t, Validate(s, nil))
}

func TestFirstErrorID(t *testing.T) {
	s := sampleSurvey()

	id, ok := FirstErrorID(s, Errors{"q_open": RequiredMessage, "q_multi": RequiredMessage})
	assert.True(t, ok)
	assert.Equal(t, "q_multi", id)

	_, ok = FirstErrorID(s, Errors{})
	assert.False(t, ok)

	_, ok = FirstErrorID(s, Errors{"not_in_survey": RequiredMessage})
	assert.False(t, ok)
}

func TestCoerce(t *testing.T) {
	s := sampleSurvey()
	got := Coerce(s, model.Answers{
		"q_scale": float64(4),
		"q_multi": []any{"z", "x"},
		"q_why":   map[string]any{"choice": "yes", "text": "because"},
		"q_open":  "text",
		"stale":   "dropped",
	})
	want := model.Answers{
		"q_scale": 4,
		"q_multi": []string{"z", "x"},
		"q_why":   model.ChoiceAnswer{Choice: "yes", Text: "because"},
		"q_open":  "text",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Coerce() mismatch (-want +got):\n%s", diff)
	}
}
