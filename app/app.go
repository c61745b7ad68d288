package app

import (
	"database/sql"
	"time"

	"github.com/go-chi/oauth"

	"github.com/mbolis/surveyflow/apiclient"
	"github.com/mbolis/surveyflow/config"
	"github.com/mbolis/surveyflow/form"
	"github.com/mbolis/surveyflow/session"
	"github.com/mbolis/surveyflow/survey"
	"github.com/mbolis/surveyflow/views"
)

// Web is what the web frontend handlers are built from.
type Web struct {
	config.Config
	API      *apiclient.Client
	Sessions *session.Manager
	Forms    *form.Registry
	Widgets  *survey.Renderer
	Views    *views.Views
	Now      func() time.Time
}

// API is what the development API handlers are built from.
type API struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
	Now func() time.Time
}
