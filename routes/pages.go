package routes

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/mbolis/surveyflow/apiclient"
	"github.com/mbolis/surveyflow/app"
	"github.com/mbolis/surveyflow/log"
	"github.com/mbolis/surveyflow/session"
	"github.com/mbolis/surveyflow/views"
)

var flashMessages = map[string]string{
	"deleted":    "Survey deleted.",
	"scheduled":  "Schedule updated.",
	"duplicated": "Survey duplicated.",
}

// client is the API client acting as the signed-in user of r.
func client(app app.Web, r *http.Request) *apiclient.Client {
	s := session.FromContext(r.Context())
	if s == nil {
		return app.API
	}
	return s.Client(app.API)
}

func page(r *http.Request) views.Page {
	return views.Page{
		User:  session.UserFrom(r.Context()),
		Flash: flashMessages[r.URL.Query().Get("flash")],
	}
}

func shareURL(app app.Web, slug string) string {
	return app.PublicURL + "/s/" + url.PathEscape(slug)
}

func renderError(app app.Web, w http.ResponseWriter, r *http.Request, status int, title, msg string) {
	app.Views.Render(w, status, "error", views.ErrorPage{
		Page:      page(r),
		Title:     title,
		Message:   msg,
		Back:      "/",
		BackLabel: "Back to home",
	})
}

// apiFailure answers a failed API call: a lost session goes back to login,
// anything else becomes an error page carrying the API's message.
func apiFailure(app app.Web, w http.ResponseWriter, r *http.Request, code, title string, err error) {
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		log.Debugf("%s: %s", code, err)
		http.Redirect(w, r, app.Sessions.LoginURL(r), http.StatusSeeOther)
	case errors.Is(err, apiclient.ErrNotFound):
		log.Debugf("%s: %s", code, err)
		renderError(app, w, r, http.StatusNotFound, title, err.Error())
	default:
		log.Errorf("%s: %s", code, err)
		status := http.StatusBadGateway
		if sc := apiclient.StatusCode(err); sc >= 400 && sc < 500 {
			status = sc
		}
		renderError(app, w, r, status, title, message(err))
	}
}

// message is what a user gets to read about err.
func message(err error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return "Something went wrong. Please try again."
}

// safeGoto keeps post-login redirects on this site.
func safeGoto(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
