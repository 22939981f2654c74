package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/druksewa/marketplace/internal/api/handler"
	"github.com/druksewa/marketplace/internal/api/middleware"
	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/core/ports"
)

// Dependencies are the services and settings the router wires into handlers.
type Dependencies struct {
	Auth          ports.AuthService
	Applications  ports.ApplicationService
	Notifications ports.NotificationBus
	HealthChecks  map[string]handler.HealthCheck
	JWTSecret     string
	BodyLimit     string
	Log           zerolog.Logger
	// Registerer receives the HTTP metrics; nil means the default registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	if deps.BodyLimit != "" {
		e.Use(echomiddleware.BodyLimit(deps.BodyLimit))
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "marketplace",
		Registerer: deps.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(middleware.Auth(deps.JWTSecret))

	// --- Health and tooling (no auth required) ---
	health := handler.NewHealthHandler(deps.HealthChecks)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Auth ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/verify-otp", authHandler.VerifyOTP)
	e.POST("/auth/resend-otp", authHandler.ResendOTP)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/admin/login", authHandler.AdminLogin)

	signedIn := middleware.Guard()
	e.GET("/auth/profile", authHandler.Profile, signedIn)
	e.PUT("/auth/update-profile", authHandler.UpdateProfile, signedIn)

	notificationHandler := handler.NewNotificationHandler(deps.Notifications)
	e.GET("/notifications", notificationHandler.List, signedIn)

	// --- Provider applications ---
	appHandler := handler.NewApplicationHandler(deps.Applications)
	e.GET("/providers", appHandler.Directory)
	applicant := e.Group("/providers", middleware.Guard(domain.RoleCustomer))
	applicant.POST("/register", appHandler.Register)
	applicant.POST("/application", appHandler.CreateDraft)
	applicant.PUT("/application", appHandler.UpdateDraft)
	applicant.POST("/application/certificates", appHandler.AttachCertificates)
	applicant.POST("/application/submit", appHandler.Submit)
	applicant.POST("/application/withdraw", appHandler.Withdraw)
	applicant.POST("/application/resubmit", appHandler.Resubmit)

	// Providers keep read access to the application that promoted them.
	e.GET("/providers/application", appHandler.Current, middleware.Guard(domain.RoleCustomer, domain.RoleProvider))

	// --- Back office ---
	adminHandler := handler.NewAdminHandler(deps.Applications)
	admin := e.Group("/admin/providers", middleware.Guard(domain.RoleAdmin, domain.RoleStaff))
	admin.GET("/pending", adminHandler.Pending)
	admin.GET("/approved", adminHandler.Approved)
	admin.GET("/:id", adminHandler.Get)
	admin.GET("/:id/certificates/:docId", adminHandler.Certificate)
	admin.POST("/:id/approve", adminHandler.Approve)
	admin.POST("/:id/reject", adminHandler.Reject)

	userHandler := handler.NewUserHandler(deps.Auth)
	e.GET("/users", userHandler.List, middleware.Guard(domain.RoleAdmin, domain.RoleStaff))

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= http.StatusInternalServerError {
				evt = log.Error().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
