package model

import "time"

// QuestionType is the declared input kind of a question.
type QuestionType string

const (
	Scale1To5            QuestionType = "scale_1_5"
	SingleChoice         QuestionType = "single_choice"
	MultiCheckbox        QuestionType = "multi_checkbox"
	Dropdown             QuestionType = "dropdown"
	SingleChoiceWithText QuestionType = "single_choice_with_text"
	OpenText             QuestionType = "open_text"
)

// QuestionTypes lists every known question type.
var QuestionTypes = []QuestionType{
	Scale1To5,
	SingleChoice,
	MultiCheckbox,
	Dropdown,
	SingleChoiceWithText,
	OpenText,
}

func (t QuestionType) Known() bool {
	for _, k := range QuestionTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Survey is the canonical survey shape used by the form and the validator.
// Payloads carrying vectors under "config" are flattened into it by the API client.
type Survey struct {
	ID          string     `json:"id,omitempty"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	OpensAt     *time.Time `json:"opens_at,omitempty"`
	ClosesAt    *time.Time `json:"closes_at,omitempty"`
	IsOpen      *bool      `json:"is_open,omitempty"`
	Vectors     []Vector   `json:"vectors"`
}

type Vector struct {
	VectorID   string     `json:"vector_id"`
	VectorName string     `json:"vector_name"`
	Questions  []Question `json:"questions"`
}

type Question struct {
	QuestionID string       `json:"question_id"`
	Question   string       `json:"question"`
	Type       QuestionType `json:"type"`
	Options    []string     `json:"options,omitempty"`
	Required   *bool        `json:"required,omitempty"`
	TextPrompt string       `json:"text_prompt,omitempty"`
}

// IsRequired is true unless the question explicitly says required: false.
func (q Question) IsRequired() bool {
	return q.Required == nil || *q.Required
}

// Questions returns all questions of the survey in vector order.
func (s *Survey) Questions() []Question {
	var qs []Question
	for _, v := range s.Vectors {
		qs = append(qs, v.Questions...)
	}
	return qs
}

// Question looks up a question by id.
func (s *Survey) Question(id string) (Question, bool) {
	for _, v := range s.Vectors {
		for _, q := range v.Questions {
			if q.QuestionID == id {
				return q, true
			}
		}
	}
	return Question{}, false
}

// Answers maps question ids to values. Keys exist only for touched questions.
type Answers map[string]any

func (a Answers) Clone() Answers {
	c := make(Answers, len(a))
	for k, v := range a {
		switch v := v.(type) {
		case []string:
			c[k] = append([]string(nil), v...)
		default:
			c[k] = v
		}
	}
	return c
}

// ChoiceAnswer is the value of a single_choice_with_text question.
type ChoiceAnswer struct {
	Choice string `json:"choice"`
	Text   string `json:"text"`
}

// Response is a respondent's own draft or submitted response.
type Response struct {
	Answers     Answers    `json:"answers"`
	IsDraft     bool       `json:"is_draft"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ResponseItem is a response as listed to survey admins.
type ResponseItem struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Username    string     `json:"github_username"`
	Answers     Answers    `json:"answers"`
	IsDraft     bool       `json:"is_draft"`
	SubmittedAt *time.Time `json:"submitted_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RespondRequest is the body of the respond (upsert) endpoint.
type RespondRequest struct {
	Answers Answers `json:"answers"`
	IsDraft bool    `json:"is_draft"`
}

type User struct {
	ID        string `json:"id"`
	Username  string `json:"github_username"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
}

// SurveyItem is a dashboard row.
type SurveyItem struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	OpensAt       *time.Time `json:"opens_at"`
	ClosesAt      *time.Time `json:"closes_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ResponseCount int        `json:"response_count"`
}
