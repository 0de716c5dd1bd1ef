// Package userservice собирает HTTP-приложение сервиса пользователей.
package userservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/user-service/internal/http/handlers/health"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/users/login"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/users/logout"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/users/me"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/users/signup"
	"github.com/magabrotheeeer/user-service/internal/http/handlers/users/validate"
	"github.com/magabrotheeeer/user-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/user-service/internal/services/auth"
)

// Deps зависимости, необходимые маршрутам.
type Deps struct {
	Auth     *auth.Service
	DB       health.Pinger
	Gatherer prometheus.Gatherer
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/users", func(r chi.Router) {
		r.Post("/signup", signup.New(logger, deps.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, deps.Auth).ServeHTTP)
		r.Get("/logout/{token}", logout.New(logger, deps.Auth).ServeHTTP)
		r.Get("/validate/{token}", validate.New(logger, deps.Auth).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.TokenMiddleware(deps.Auth, logger))
			r.Get("/me", me.New(logger).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, deps.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
