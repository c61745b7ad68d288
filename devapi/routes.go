package devapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/mbolis/surveyflow/app"
)

// Wire builds the development API.
func Wire(app app.API) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer, CookieAuth(app))

	root.Get("/health", Health)

	root.Post("/auth/login", Login(app))
	root.Post("/auth/refresh", Refresh(app))
	root.Post("/auth/logout", Logout(app))
	root.With(Authenticated(app)).Get("/auth/me", Me(app))

	root.Get("/surveys/{slug}/public", PublicSurvey(app))

	root.Group(func(r chi.Router) {
		r.Use(Authenticated(app))

		r.Get("/surveys/active", ActiveSurveys(app))
		r.Post("/surveys/{slug}/respond", Respond(app))
		r.Get("/surveys/{slug}/my-response", MyResponse(app))
	})

	root.Group(func(r chi.Router) {
		r.Use(Admin(app))

		// CRUD survey
		r.Post("/surveys", CreateSurvey(app))
		r.Get("/surveys", ListSurveys(app))
		r.Get("/surveys/{id}", GetSurvey(app))
		r.Patch("/surveys/{id}", UpdateSurvey(app))
		r.Delete("/surveys/{id}", DeleteSurvey(app))
		r.Post("/surveys/{id}/duplicate", DuplicateSurvey(app))

		r.Get("/surveys/{id}/responses", SurveyResponses(app))
		r.Get("/surveys/{id}/export", ExportResponses(app))
	})

	return root
}

func Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "healthy"})
}
