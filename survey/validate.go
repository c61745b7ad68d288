package survey

import "github.com/mbolis/surveyflow/model"

// RequiredMessage is the only validation message there is.
const RequiredMessage = "This question is required"

// Errors maps question ids to a validation message.
type Errors map[string]string

// Validate reports every required question whose answer is not filled.
// It doesn't mutate its arguments and always returns a non-nil map.
func Validate(s *model.Survey, answers model.Answers) Errors {
	errs := Errors{}
	if s == nil {
		return errs
	}
	for _, q := range s.Questions() {
		if !q.IsRequired() {
			continue
		}
		if !WidgetFor(q).Filled(answers[q.QuestionID]) {
			errs[q.QuestionID] = RequiredMessage
		}
	}
	return errs
}

func HasErrors(errs Errors) bool {
	return len(errs) > 0
}

// FirstErrorID returns the first question, in survey order, that has an error.
func FirstErrorID(s *model.Survey, errs Errors) (string, bool) {
	if s == nil || len(errs) == 0 {
		return "", false
	}
	for _, q := range s.Questions() {
		if _, ok := errs[q.QuestionID]; ok {
			return q.QuestionID, true
		}
	}
	return "", false
}

// Coerce brings every answer of a known question to its canonical shape.
// Answers for unknown question ids are dropped.
func Coerce(s *model.Survey, answers model.Answers) model.Answers {
	out := model.Answers{}
	if s == nil {
		return out
	}
	for _, q := range s.Questions() {
		v, ok := answers[q.QuestionID]
		if !ok {
			continue
		}
		if c, ok := WidgetFor(q).Coerce(v); ok {
			out[q.QuestionID] = c
		}
	}
	return out
}
