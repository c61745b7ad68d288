package survey

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition([]byte(`{
		"survey_title": "Onboarding",
		"vectors": [{
			"vector_id": "v1",
			"vector_name": "First week",
			"questions": [
				{"question_id": "q1", "question": "How was it?", "type": "scale_1_5"},
				{"question_id": "q2", "question": "Notes", "type": "open_text", "required": false}
			]
		}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Onboarding", def.SurveyTitle)
	require.Len(t, def.Vectors, 1)
	require.Len(t, def.Vectors[0].Questions, 2)
	assert.True(t, def.Vectors[0].Questions[0].IsRequired())
	assert.False(t, def.Vectors[0].Questions[1].IsRequired())
	assert.NoError(t, CheckDefinition(def))

	_, err = ParseDefinition([]byte(`{"survey_title": `))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestCheckDefinitionCollectsEveryProblem(t *testing.T) {
	def, err := ParseDefinition([]byte(`{
		"survey_title": " ",
		"vectors": [
			{"vector_id": "v1", "vector_name": "A", "questions": [
				{"question_id": "q1", "question": "One", "type": "single_choice"},
				{"question_id": "q1", "question": "Two", "type": "open_text"},
				{"question_id": "q3", "question": "", "type": "slider"}
			]},
			{"vector_id": "v1", "vector_name": "B", "questions": []}
		]
	}`))
	require.NoError(t, err)

	msgs := Messages(CheckDefinition(def))
	assert.Equal(t, []string{
		"survey_title is required",
		"vectors[0].questions[0]: single_choice requires options",
		`vectors[0].questions[1]: duplicate question_id "q1"`,
		"vectors[0].questions[2]: question text is required",
		`vectors[0].questions[2]: unknown type "slider"`,
		`vectors[1]: duplicate vector_id "v1"`,
		"vectors[1]: at least one question is required",
	}, msgs)
}

func TestMessages(t *testing.T) {
	assert.Nil(t, Messages(nil))
	assert.Equal(t, []string{"boom"}, Messages(errors.New("boom")))
}
