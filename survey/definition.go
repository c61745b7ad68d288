package survey

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mbolis/surveyflow/model"
)

var ErrInvalidJSON = errors.New("Invalid JSON format. Please check your file and try again.")

// ParseDefinition decodes an uploaded survey definition.
func ParseDefinition(data []byte) (model.SurveyDefinition, error) {
	var def model.SurveyDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return def, ErrInvalidJSON
	}
	return def, nil
}

// CheckDefinition reports every structural problem of a definition at once.
func CheckDefinition(def model.SurveyDefinition) error {
	var result *multierror.Error
	fail := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(def.SurveyTitle) == "" {
		fail("survey_title is required")
	}
	if len(def.Vectors) == 0 {
		fail("at least one vector is required")
	}

	vectorIDs := map[string]bool{}
	questionIDs := map[string]bool{}
	for i, v := range def.Vectors {
		where := fmt.Sprintf("vectors[%d]", i)
		switch {
		case v.VectorID == "":
			fail("%s: vector_id is required", where)
		case vectorIDs[v.VectorID]:
			fail("%s: duplicate vector_id %q", where, v.VectorID)
		default:
			vectorIDs[v.VectorID] = true
		}
		if strings.TrimSpace(v.VectorName) == "" {
			fail("%s: vector_name is required", where)
		}
		if len(v.Questions) == 0 {
			fail("%s: at least one question is required", where)
		}

		for j, q := range v.Questions {
			where := fmt.Sprintf("%s.questions[%d]", where, j)
			switch {
			case q.QuestionID == "":
				fail("%s: question_id is required", where)
			case questionIDs[q.QuestionID]:
				fail("%s: duplicate question_id %q", where, q.QuestionID)
			default:
				questionIDs[q.QuestionID] = true
			}
			if strings.TrimSpace(q.Question) == "" {
				fail("%s: question text is required", where)
			}
			if !q.Type.Known() {
				fail("%s: unknown type %q", where, q.Type)
				continue
			}
			if needsOptions(q.Type) && len(q.Options) == 0 {
				fail("%s: %s requires options", where, q.Type)
			}
		}
	}

	return result.ErrorOrNil()
}

func needsOptions(t model.QuestionType) bool {
	switch t {
	case model.SingleChoice, model.MultiCheckbox, model.Dropdown, model.SingleChoiceWithText:
		return true
	}
	return false
}

// Messages flattens an error into display lines.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		msgs := make([]string, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}
