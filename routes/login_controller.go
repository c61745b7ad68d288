package routes

import (
	"errors"
	"net/http"

	"github.com/mbolis/surveyflow/apiclient"
	"github.com/mbolis/surveyflow/app"
	"github.com/mbolis/surveyflow/log"
	"github.com/mbolis/surveyflow/session"
	"github.com/mbolis/surveyflow/views"
)

func LoginPage(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := safeGoto(r.URL.Query().Get("goto"))
		if session.UserFrom(r.Context()) != nil {
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		app.Views.Render(w, http.StatusOK, "login", views.LoginPage{Page: page(r), Goto: target})
	}
}

func Login(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			renderError(app, w, r, http.StatusBadRequest, "Sign in", "Invalid request.")
			return
		}
		username := r.PostForm.Get("username")
		target := safeGoto(r.PostForm.Get("goto"))

		ctx, cancel := withTimeout(app, r)
		defer cancel()

		_, err = app.Sessions.Login(w, r.WithContext(ctx), username, r.PostForm.Get("password"))
		if err != nil {
			status := http.StatusUnauthorized
			msg := "Invalid username or password."
			if !errors.Is(err, apiclient.ErrUnauthorized) {
				log.Errorf("login.api: %s", err)
				status = http.StatusBadGateway
				msg = message(err)
			} else {
				log.Debugf("login.denied: %s", username)
			}
			app.Views.Render(w, status, "login", views.LoginPage{
				Page:     page(r),
				Goto:     target,
				Username: username,
				Error:    msg,
			})
			return
		}

		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

func Logout(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := withTimeout(app, r)
		defer cancel()

		app.Sessions.Logout(w, r.WithContext(ctx))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
