package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nhl-cortex/internal/api/handlers"
	"github.com/stitts-dev/nhl-cortex/internal/api/middleware"
	"github.com/stitts-dev/nhl-cortex/internal/projection"
	"github.com/stitts-dev/nhl-cortex/internal/services"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
)

// Dependencies are the services the HTTP layer serves
type Dependencies struct {
	DB          *database.DB
	Calculator  *projection.Calculator
	Dashboard   *services.DashboardService
	Performance *services.PerformanceService
	Billing     *services.BillingService
	Auth        *services.AuthService
	Scheduler   *services.Scheduler
	// Readiness checks keyed by name; nil entries are skipped
	Checks map[string]handlers.Pinger

	JWTSecret     string
	TokenTTL      time.Duration
	PublicBaseURL string
	Logger        *logrus.Logger
}

// NewRouter builds the gin engine with health checks at the root and the API under /api/v1
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))

	healthHandler := handlers.NewHealthHandler(deps.Checks)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	SetupRoutes(router.Group("/api/v1"), deps)
	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, deps Dependencies) {
	nhlHandler := handlers.NewNHLHandler(deps.Dashboard)
	projectionHandler := handlers.NewProjectionHandler(deps.Calculator)
	performanceHandler := handlers.NewPerformanceHandler(deps.Performance)
	billingHandler := handlers.NewBillingHandler(deps.Billing, deps.PublicBaseURL)
	adminHandler := handlers.NewAdminHandler(deps.Scheduler)
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.JWTSecret, deps.TokenTTL)
	requireUser := []gin.HandlerFunc{middleware.AuthRequired(deps.JWTSecret), middleware.LoadViewer(deps.DB)}

	// Phone code sign up and login
	authGroup := group.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/verify", authHandler.Verify)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/resend", authHandler.ResendCode)
		authGroup.GET("/me", append(requireUser, authHandler.GetCurrentUser)...)
		authGroup.POST("/refresh", append(requireUser, authHandler.RefreshToken)...)
	}

	// Picks (gated by premium status when signed in)
	nhlGroup := group.Group("/nhl")
	nhlGroup.Use(middleware.OptionalAuth(deps.JWTSecret), middleware.LoadViewer(deps.DB))
	{
		nhlGroup.GET("/dashboard", nhlHandler.GetDashboard)
		nhlGroup.GET("/players/:id", nhlHandler.GetPlayer)
		nhlGroup.GET("/teams", nhlHandler.GetTeams)
	}

	// Engine
	group.POST("/projections", projectionHandler.Project)
	group.POST("/projections/odds", projectionHandler.Odds)

	group.GET("/performance", performanceHandler.GetSummary)

	// Stripe signs its own requests
	group.POST("/webhooks/stripe", billingHandler.StripeWebhook)

	// Authenticated routes
	auth := group.Group("")
	auth.Use(requireUser...)
	{
		auth.POST("/billing/checkout", billingHandler.CreateCheckout)
	}

	// Staff only
	admin := group.Group("/admin")
	admin.Use(requireUser...)
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/jobs", adminHandler.ListJobs)
		admin.POST("/jobs/:name", adminHandler.RunJob)
	}
}
