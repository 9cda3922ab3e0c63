package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/app"
	iauth "github.com/wardenhq/warden/internal/auth"
	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/handlers"
	"github.com/wardenhq/warden/internal/middleware"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, resolver *authz.Resolver, cache *authz.PermissionCache) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.NoRoute(middleware.NotFoundHandler)

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authzCfg := cfg.AuthzConfig()

	roleHandler, err := handlers.NewRoleHandler(db, authzCfg, cache)
	if err != nil {
		return nil, err
	}
	permHandler, err := handlers.NewPermissionHandler(db, authzCfg, cache)
	if err != nil {
		return nil, err
	}
	moduleHandler, err := handlers.NewModuleHandler(db)
	if err != nil {
		return nil, err
	}
	checkHandler, err := handlers.NewCheckHandler(resolver)
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	// Decision endpoints: any authenticated caller may ask about itself.
	me := api.Group("/me")
	{
		me.GET("/permissions", checkHandler.MyPermissions)
		me.POST("/permissions/refresh", checkHandler.RefreshMyPermissions)
		me.GET("/super-admin", checkHandler.AmISuperAdmin)
	}
	check := api.Group("/check")
	{
		check.POST("/permission", checkHandler.CheckPermission)
		check.POST("/role", checkHandler.CheckRole)
		check.POST("/module", checkHandler.CheckModule)
	}

	// Roles
	roles := api.Group("/roles")
	{
		roles.GET("", middleware.RequirePermission(resolver, "role.view"), roleHandler.List)
		roles.GET("/all", middleware.RequirePermission(resolver, "role.manage"), roleHandler.ListAll)
		roles.GET("/:id", middleware.RequirePermission(resolver, "role.view"), roleHandler.Get)
		roles.POST("", middleware.RequirePermission(resolver, "role.manage"), roleHandler.Create)
		roles.PATCH("/:id", middleware.RequirePermission(resolver, "role.manage"), roleHandler.Update)
		roles.DELETE("/:id", middleware.RequirePermission(resolver, "role.manage"), roleHandler.Delete)
		roles.POST("/:id/permissions", middleware.RequirePermission(resolver, "role.manage"), roleHandler.GrantPermissions)
		roles.PUT("/:id/permissions", middleware.RequirePermission(resolver, "role.manage"), roleHandler.SyncPermissions)
		roles.DELETE("/:id/permissions", middleware.RequirePermission(resolver, "role.manage"), roleHandler.RevokePermissions)
	}

	// Role assignment
	users := api.Group("/users")
	{
		users.POST("/:id/roles", middleware.RequirePermission(resolver, "role.manage"), roleHandler.AssignToUser)
		users.PUT("/:id/roles", middleware.RequirePermission(resolver, "role.manage"), roleHandler.SyncForUser)
		users.DELETE("/:id/roles", middleware.RequirePermission(resolver, "role.manage"), roleHandler.RemoveFromUser)
	}

	// Permission catalog
	perms := api.Group("/permissions")
	{
		perms.GET("", middleware.RequirePermission(resolver, "permission.view"), permHandler.List)
		perms.GET("/:id", middleware.RequirePermission(resolver, "permission.view"), permHandler.Get)
		perms.POST("", middleware.RequirePermission(resolver, "permission.manage"), permHandler.Create)
		perms.POST("/batch", middleware.RequirePermission(resolver, "permission.manage"), permHandler.CreateBatch)
		perms.PATCH("/:id", middleware.RequirePermission(resolver, "permission.manage"), permHandler.Update)
		perms.DELETE("/:id", middleware.RequirePermission(resolver, "permission.manage"), permHandler.Delete)
	}

	// Module hierarchy
	modules := api.Group("/modules")
	{
		modules.GET("", middleware.RequirePermission(resolver, "module.view"), moduleHandler.List)
		modules.GET("/:id", middleware.RequirePermission(resolver, "module.view"), moduleHandler.Get)
		modules.POST("", middleware.RequirePermission(resolver, "module.manage"), moduleHandler.Create)
		modules.PATCH("/:id", middleware.RequirePermission(resolver, "module.manage"), moduleHandler.Update)
		modules.DELETE("/:id", middleware.RequirePermission(resolver, "module.manage"), moduleHandler.Delete)
		modules.POST("/:id/sub-modules", middleware.RequirePermission(resolver, "module.manage"), moduleHandler.CreateSubModule)
	}
	api.DELETE("/sub-modules/:id", middleware.RequirePermission(resolver, "module.manage"), moduleHandler.DeleteSubModule)

	return r, nil
}
