package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/surveyflow/app"
	"github.com/mbolis/surveyflow/httpx"
	"github.com/mbolis/surveyflow/log"
)

// Wire builds the web frontend.
func Wire(app app.Web) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RealIP, middleware.Logger, middleware.Recoverer)
	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.LogNotFound(w, "routes.not_found", r.URL.Path)
	})

	root.Get("/healthz", Health(app))

	root.Group(func(r chi.Router) {
		r.Use(app.Sessions.Middleware)

		r.Get("/login", LoginPage(app))
		r.Post("/login", Login(app))
		r.Post("/logout", Logout(app))

		r.Group(func(r chi.Router) {
			r.Use(app.Sessions.RequireUser)

			r.Get("/", Home(app))

			r.Route("/s/{slug}", func(r chi.Router) {
				r.Get("/", RespondPage(app))
				r.Post("/answers", SaveAnswer(app))
				r.Get("/status", SaveStatus(app))
				r.Post("/submit", Submit(app))
				r.Get("/thanks", Thanks(app))
			})
		})

		r.Route("/surveys", func(r chi.Router) {
			r.Use(app.Sessions.RequireAdmin)

			r.Get("/new", NewSurveyPage(app))
			r.Post("/new", CreateSurvey(app))
			r.Get("/{id}", Results(app))
			r.Post("/{id}/schedule", UpdateSchedule(app))
			r.Get("/{id}/export", Export(app))
			r.Post("/{id}/duplicate", DuplicateSurvey(app))
			r.Post("/{id}/delete", DeleteSurvey(app))
		})
	})

	return root
}

func Health(app app.Web) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := withTimeout(app, r)
		defer cancel()

		if err := app.API.Health(ctx); err != nil {
			log.Warnf("health.api: %s", err)
			httpx.LogStatusMsg(w, http.StatusServiceUnavailable, log.WarnLevel, "health", "api unavailable")
			return
		}
		w.Write([]byte("ok"))
	}
}

func withTimeout(app app.Web, r *http.Request) (context.Context, context.CancelFunc) {
	if app.RequestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), app.RequestTimeout)
}

func now(app app.Web) time.Time {
	if app.Now == nil {
		return time.Now()
	}
	return app.Now()
}
