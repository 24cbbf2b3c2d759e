package handlers

import (
	"github.com/SscSPs/shope_lite/cmd/docs"
	"github.com/SscSPs/shope_lite/internal/core/domain"
	portssvc "github.com/SscSPs/shope_lite/internal/core/ports/services"
	"github.com/SscSPs/shope_lite/internal/middleware"
	"github.com/SscSPs/shope_lite/internal/platform/config"
	"github.com/SscSPs/shope_lite/internal/utils"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
)

// RouteOptions carries the optional collaborators of the HTTP layer.
type RouteOptions struct {
	// AuthLimiter throttles the public credential endpoints. Nil disables throttling.
	AuthLimiter *limiter.Limiter
	// Posthog receives login and registration events. Nil disables analytics.
	Posthog *utils.PosthogClientWrapper
}

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	opts RouteOptions,
) {
	RegisterValidators()

	r.GET("/", getHome)
	r.GET("/health", getHealth)

	registerAuthRoutes(r, services, opts)

	setupSwaggerRoutes(r, cfg)
}

// registerAuthRoutes mounts the /auth group. Public credential endpoints are
// rate limited; everything else requires a bearer session token.
func registerAuthRoutes(r *gin.Engine, services *portssvc.ServiceContainer, opts RouteOptions) {
	auth := newAuthHandler(services.Auth, opts.Posthog)
	admin := newAdminHandler(services.User)
	google := newGoogleOAuthHandler(services.GoogleOAuth, services.Auth, opts.Posthog)

	authRoutes := r.Group("/auth")

	public := authRoutes.Group("")
	if opts.AuthLimiter != nil {
		public.Use(middleware.RateLimit(opts.AuthLimiter))
	}
	{
		public.POST("/register", auth.register)
		public.POST("/login", auth.login)
		public.POST("/forgot-password", auth.forgotPassword)
		public.POST("/reset-password/:token", auth.resetPassword)
		public.POST("/google/exchange-code", google.exchangeCode)
	}

	protected := authRoutes.Group("", middleware.AuthMiddleware(services.SessionToken))
	{
		protected.GET("/profile", auth.profile)
		protected.PATCH("/username", auth.changeUsername)
		protected.PATCH("/email", auth.changeEmail)
		protected.PATCH("/password", auth.changePassword)

		protected.GET("/staff", middleware.RequireRole(domain.RoleAdmin, domain.RoleUser), admin.staffProbe)

		adminOnly := protected.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
		adminOnly.GET("", admin.adminProbe)
		adminOnly.GET("/users", admin.listUsers)
	}
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
