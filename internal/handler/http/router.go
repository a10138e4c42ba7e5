package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/potrail/identity/internal/auth"
	"github.com/potrail/identity/internal/domain"
	"github.com/potrail/identity/internal/service"
	"github.com/potrail/identity/pkg/health"
	"github.com/potrail/identity/pkg/middleware"
)

// NewRouter creates a chi router with all identity service routes registered.
func NewRouter(
	identityService *service.IdentityService,
	tokens *auth.TokenManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig middleware.CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("identity"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator that bridges to our internal TokenManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := tokens.Verify(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.AccountID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}

	authHandler := NewAuthHandler(identityService, logger)
	mfaHandler := NewMFAHandler(identityService, logger)

	// Auth endpoints (public)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/confirm-email", authHandler.ConfirmEmail)
			r.Post("/request-password-reset", authHandler.RequestPasswordReset)
			r.Post("/reset-password", authHandler.ResetPassword)
		})

		// Session endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))

			r.Get("/me", authHandler.Me)

			r.Route("/mfa", func(r chi.Router) {
				r.Post("/enable", mfaHandler.Enable)
				r.Post("/disable", mfaHandler.Disable)
				r.With(ContentTypeJSON).Post("/verify-code", mfaHandler.VerifyCode)
				r.Get("/link-qrcode.svg", mfaHandler.QRCode)
			})
		})
	})

	// Account management endpoints (admin only)
	accountHandler := NewAccountHandler(identityService, logger)
	r.Route("/api/v1/accounts", func(r chi.Router) {
		r.Use(middleware.Auth(tokenValidator))
		r.Use(middleware.RequireRole(domain.RoleAdmin))

		r.Get("/", accountHandler.List)
		r.Get("/{id}", accountHandler.Get)
		r.With(ContentTypeJSON).Patch("/{id}", accountHandler.Update)
		r.Delete("/{id}", accountHandler.Delete)
		r.Post("/{id}/force-password-reset", accountHandler.ForcePasswordReset)
		r.Post("/{id}/disable-mfa", accountHandler.DisableMFA)
	})

	return r
}
