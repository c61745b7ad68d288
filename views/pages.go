package views

import (
	"time"

	"github.com/mbolis/surveyflow/form"
	"github.com/mbolis/surveyflow/model"
	"github.com/mbolis/surveyflow/survey"
)

// Page carries what the layout needs on every page.
type Page struct {
	User  *model.User
	Flash string
}

type SurveyRow struct {
	model.SurveyItem
	ShareURL string
}

type DashboardPage struct {
	Page
	Surveys []SurveyRow
	Error   string
}

type RespondentHomePage struct {
	Page
	Surveys []model.SurveyItem
}

type CreatedSurvey struct {
	ID       string
	Title    string
	ShareURL string
}

type CreatePage struct {
	Page
	Errors   []string
	Created  *CreatedSurvey
	OpensAt  string
	ClosesAt string
}

type ResultsPage struct {
	Page
	Survey        *model.SurveyDetail
	Questions     []model.Question
	Responses     []model.ResponseItem
	Total         int
	Completed     int
	InProgress    int
	ShareURL      string
	Search        string
	ScheduleError string
}

type RespondPage struct {
	Page
	Survey       *model.Survey
	Answers      model.Answers
	Errors       survey.Errors
	HasErrors    bool
	FirstErrorID string
	LastSaved    *time.Time
	SaveStatus   form.SaveStatus
	SubmitLabel  string
	Submitting   bool
	Open         bool
	Error        string
}

type ThanksPage struct {
	Page
	Slug string
}

type LoginPage struct {
	Page
	Goto     string
	Username string
	Error    string
}

type ErrorPage struct {
	Page
	Title     string
	Message   string
	Back      string
	BackLabel string
}
