package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atelierhq/atelier-api/internal/api"
	apimiddleware "github.com/atelierhq/atelier-api/internal/api/middleware"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(app.userService)
	generationHandler := api.NewGenerationHandler(app.generationService)
	taskHandler := api.NewTaskHandler(app.generationService)

	authMiddleware := apimiddleware.NewAuthMiddleware(app.jwtService)
	serviceTokenMiddleware := apimiddleware.NewServiceTokenMiddleware(app.config.Auth.ServiceToken)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// User-facing endpoints behind JWT auth
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/images", generationHandler.CreateImage)
			r.Get("/batches/{id}", generationHandler.GetBatch)
			r.Delete("/batches/{id}", generationHandler.DeleteBatch)
			r.Post("/batches/{id}/recreate", generationHandler.RecreateBatch)
			r.Get("/topics/{topicID}/batches", generationHandler.ListBatches)
		})

		// Runner callback behind the shared service token
		r.Group(func(r chi.Router) {
			r.Use(serviceTokenMiddleware.Authenticate)

			r.Patch("/tasks/{id}", taskHandler.UpdateStatus)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return r
}
