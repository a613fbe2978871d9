package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ecodonate/ecodonate/internal/http/callback"
	"github.com/ecodonate/ecodonate/internal/http/donation"
	ownmiddleware "github.com/ecodonate/ecodonate/internal/http/middleware"
	"github.com/ecodonate/ecodonate/internal/http/pages"
	"github.com/ecodonate/ecodonate/internal/http/project"
)

func New(
	projectsV1 *project.Handler,
	donationsV1 *donation.Handler,
	callbackV1 *callback.Handler,
	pagesV1 *pages.Handler,
	authSecret string,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	requireAuth := ownmiddleware.RequireDonor(authSecret)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			projectsV1.Routes(r, requireAuth)
		})

		r.Route("/donations", func(r chi.Router) {
			donationsV1.Routes(r, requireAuth)
		})

		// POST only; chi answers anything else on this route with 405.
		r.Route("/payments/callback", callbackV1.Routes)

		r.Route("/pages", pagesV1.Routes)
	})

	return router
}
