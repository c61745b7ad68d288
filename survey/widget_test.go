package survey

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/surveyflow/model"
)

func TestWidgetForCoversEveryKnownType(t *testing.T) {
	for _, typ := range model.QuestionTypes {
		w := WidgetFor(model.Question{QuestionID: "q", Type: typ})
		_, unknown := w.(Unknown)
		assert.False(t, unknown, "type %s fell back to Unknown", typ)
	}
	_, unknown := WidgetFor(model.Question{Type: "slider"}).(Unknown)
	assert.True(t, unknown)
}

func TestScaleApply(t *testing.T) {
	w := WidgetFor(model.Question{QuestionID: "q", Type: model.Scale1To5})

	v, err := w.Apply(nil, Input{Op: OpSelect, Value: "4"})
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	_, err = w.Apply(nil, Input{Op: OpSelect, Value: "6"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = w.Apply(nil, Input{Op: OpText, Value: "3"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSingleChoiceApplyRejectsUnlistedOption(t *testing.T) {
	w := WidgetFor(model.Question{QuestionID: "q", Type: model.SingleChoice, Options: []string{"a", "b"}})

	v, err := w.Apply(nil, Input{Op: OpSelect, Value: "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = w.Apply(v, Input{Op: OpSelect, Value: "c"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMultiCheckboxToggle(t *testing.T) {
	w := WidgetFor(model.Question{QuestionID: "q", Type: model.MultiCheckbox, Options: []string{"x", "y", "z"}})

	t.Run("keeps interaction order", func(t *testing.T) {
		var v any
		var err error
		for _, opt := range []string{"z", "x", "y"} {
			v, err = w.Apply(v, Input{Op: OpToggle, Value: opt, Checked: true})
			require.NoError(t, err)
		}
		assert.Equal(t, []string{"z", "x", "y"}, v)
	})

	t.Run("toggle on then off restores the original", func(t *testing.T) {
		original := []string{"y", "x"}
		on, err := w.Apply(original, Input{Op: OpToggle, Value: "z", Checked: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"y", "x", "z"}, on)

		off, err := w.Apply(on, Input{Op: OpToggle, Value: "z", Checked: false})
		require.NoError(t, err)
		assert.Equal(t, original, off)
		assert.Equal(t, []string{"y", "x"}, original, "input slice must not be modified")
	})

	t.Run("checking twice does not duplicate", func(t *testing.T) {
		v, err := w.Apply([]string{"x"}, Input{Op: OpToggle, Value: "x", Checked: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, v)
	})

	t.Run("accepts json decoded current value", func(t *testing.T) {
		v, err := w.Apply([]any{"x"}, Input{Op: OpToggle, Value: "y", Checked: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, v)
	})
}

func TestDropdownEmptySelectionClears(t *testing.T) {
	w := WidgetFor(model.Question{QuestionID: "q", Type: model.Dropdown, Options: []string{"vim"}})

	v, err := w.Apply("vim", Input{Op: OpSelect, Value: ""})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestChoiceWithText(t *testing.T) {
	w := WidgetFor(model.Question{QuestionID: "q", Type: model.SingleChoiceWithText, Options: []string{"yes", "no"}})

	t.Run("text without choice never satisfies required", func(t *testing.T) {
		v, err := w.Apply(nil, Input{Op: OpText, Value: "a long explanation"})
		require.NoError(t, err)
		assert.Equal(t, model.ChoiceAnswer{Text: "a long explanation"}, v)
		assert.False(t, w.Filled(v))
	})

	t.Run("choice and text merge", func(t *testing.T) {
		v, err := w.Apply(nil, Input{Op: OpChoice, Value: "yes"})
		require.NoError(t, err)
		v, err = w.Apply(v, Input{Op: OpText, Value: "because"})
		require.NoError(t, err)
		v, err = w.Apply(v, Input{Op: OpChoice, Value: "no"})
		require.NoError(t, err)
		assert.Equal(t, model.ChoiceAnswer{Choice: "no", Text: "because"}, v)
		assert.True(t, w.Filled(v))
	})
}

func TestOpenTextIsCapped(t *testing.T) {
	w := WidgetFor(model.Question{QuestionID: "q", Type: model.OpenText})

	v, err := w.Apply(nil, Input{Op: OpText, Value: strings.Repeat("é", MaxTextLength+50)})
	require.NoError(t, err)
	assert.Equal(t, MaxTextLength, len([]rune(v.(string))))

	v, ok := w.Coerce(strings.Repeat("x", MaxTextLength+1))
	require.True(t, ok)
	assert.Equal(t, MaxTextLength, len([]rune(v.(string))))

	withText := WidgetFor(model.Question{QuestionID: "q", Type: model.SingleChoiceWithText})
	v, ok = withText.Coerce(map[string]any{"choice": "yes", "text": strings.Repeat("x", 2*MaxTextLength)})
	require.True(t, ok)
	assert.Equal(t, model.ChoiceAnswer{Choice: "yes", Text: strings.Repeat("x", MaxTextLength)}, v)
}

func TestUnknownApply(t *testing.T) {
	w := WidgetFor(model.Question{QuestionID: "q", Type: "matrix"})
	_, err := w.Apply(nil, Input{Op: OpSelect, Value: "1"})
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestFromForm(t *testing.T) {
	vals := url.Values{
		"q_scale":       {"2"},
		"q_multi":       {"x", "z"},
		"q_why":         {"yes"},
		"q_why.text":    {"since"},
		"q_open":        {""},
		"q_drop":        {""},
		"q_bad_scale":   {"nope"},
		"q_pick":        {"b"},
		"q_forged":      {"zzz"},
		"q_forged.text": {"hi"},
	}
	ab := []string{"a", "b"}

	cases := []struct {
		q       model.Question
		want    any
		touched bool
	}{
		{model.Question{QuestionID: "q_scale", Type: model.Scale1To5}, 2, true},
		{model.Question{QuestionID: "q_bad_scale", Type: model.Scale1To5}, nil, false},
		{model.Question{QuestionID: "q_multi", Type: model.MultiCheckbox}, []string{"x", "z"}, true},
		{model.Question{QuestionID: "q_why", Type: model.SingleChoiceWithText}, model.ChoiceAnswer{Choice: "yes", Text: "since"}, true},
		{model.Question{QuestionID: "q_open", Type: model.OpenText}, "", true},
		{model.Question{QuestionID: "q_drop", Type: model.Dropdown}, nil, false},
		{model.Question{QuestionID: "q_missing", Type: model.SingleChoice}, nil, false},
		{model.Question{QuestionID: "q_pick", Type: model.SingleChoice, Options: ab}, "b", true},
		{model.Question{QuestionID: "q_forged", Type: model.SingleChoice, Options: ab}, nil, false},
		{model.Question{QuestionID: "q_forged", Type: model.Dropdown, Options: ab}, nil, false},
		{model.Question{QuestionID: "q_forged", Type: model.MultiCheckbox, Options: ab}, nil, false},
		{model.Question{QuestionID: "q_forged", Type: model.SingleChoiceWithText, Options: ab}, nil, false},
	}
	for _, c := range cases {
		t.Run(c.q.QuestionID+"/"+string(c.q.Type), func(t *testing.T) {
			v, touched := WidgetFor(c.q).FromForm(vals)
			assert.Equal(t, c.touched, touched)
			assert.Equal(t, c.want, v)
		})
	}
}
