package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/identity/internal/domain"
	"github.com/utafrali/identity/internal/service"
	"github.com/utafrali/identity/pkg/health"
	"github.com/utafrali/identity/pkg/middleware"
)

const serviceName = "identity"

// NewRouter creates a chi router with all identity routes registered.
func NewRouter(
	authService *service.AuthService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig middleware.CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.CORS(corsConfig))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	authHandler := NewAuthHandler(authService, logger)
	utilsHandler := NewUtilsHandler(authService, logger)

	// Token validator that bridges bearer tokens to stored users.
	tokenValidator := func(ctx context.Context, token string) (*middleware.Claims, error) {
		user, err := authService.Authenticate(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: user.ID, Role: user.Role()}, nil
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/signup", authHandler.Register)
			r.Post("/activation-email", authHandler.SendActivationEmail)
			r.Post("/activate", authHandler.Activate)
			r.Post("/password-recovery/{email}", authHandler.RequestPasswordReset)
			r.Post("/reset-password", authHandler.ResetPassword)
		})

		r.With(ContentTypeForm, middleware.NoStore).Post("/access-token", authHandler.Login)

		r.Route("/utils", func(r chi.Router) {
			r.Get("/health-check/", utilsHandler.HealthCheck)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(tokenValidator))
				r.Use(middleware.RequireRole(domain.RoleSuperuser))

				r.Post("/test-email/", utilsHandler.TestEmail)
				r.Post("/test-background-email/", utilsHandler.TestBackgroundEmail)
			})
		})
	})

	return r
}
