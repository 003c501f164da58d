// Package server assembles the HTTP surface of the dashboard.
package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dashboard/internal/apidocs"
	"dashboard/internal/config"
	"dashboard/internal/handlers"
	"dashboard/internal/middleware"
	"dashboard/internal/observability"
	"dashboard/internal/services"
)

// Options holds the collaborators of the router.
type Options struct {
	Config  *config.Config
	DB      *gorm.DB
	Metrics *observability.Metrics

	// DocsSource supplies the schema document. Defaults to the registered
	// swag document.
	DocsSource apidocs.Source
}

// NewRouter builds the gin engine with every route of the dashboard.
func NewRouter(opts Options) (*gin.Engine, error) {
	cfg := opts.Config
	db := opts.DB

	// Services
	userService := services.NewUserService(db)
	groupService := services.NewGroupService(db)
	permissionService := services.NewPermissionService(db)
	auditService := services.NewAuditService(db, opts.Metrics)
	dashboardService := services.NewDashboardService(cfg.ServerMode, userService, auditService)

	// Handlers
	userHandler := handlers.NewUserHandler(userService, auditService)
	groupHandler := handlers.NewGroupHandler(groupService, auditService)
	permissionHandler := handlers.NewPermissionHandler(permissionService)
	logEntryHandler := handlers.NewLogEntryHandler(auditService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogging())
	if opts.Metrics != nil {
		router.Use(opts.Metrics.GinMiddleware())
	}
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	api := router.Group("/api")

	// App surface
	app := api.Group("/user/app/api/users", middleware.AuthMiddleware())
	app.GET("", userHandler.ListUsers)
	app.POST("", userHandler.CreateUser)
	app.GET("/stats", userHandler.GetStats)
	app.GET("/:id", userHandler.GetUser)
	app.PUT("/:id", userHandler.UpdateUser)
	app.PATCH("/:id", userHandler.UpdateUser)
	app.DELETE("/:id", userHandler.DeleteUser)
	app.POST("/:id/toggle_active", userHandler.ToggleActive)

	// Admin surface
	adminUsers := api.Group("/user/admin/users", middleware.AuthMiddleware(), middleware.StaffRequired())
	adminUsers.GET("", userHandler.AdminListUsers)
	adminUsers.POST("", userHandler.AdminCreateUser)
	adminUsers.GET("/system_stats", userHandler.GetSystemStats)
	adminUsers.GET("/:id", userHandler.AdminGetUser)
	adminUsers.PUT("/:id", userHandler.AdminUpdateUser)
	adminUsers.PATCH("/:id", userHandler.AdminUpdateUser)
	adminUsers.DELETE("/:id", userHandler.AdminDeleteUser)
	adminUsers.POST("/:id/force_deactivate", userHandler.ForceDeactivate)

	admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.StaffRequired())
	admin.GET("/dashboard", dashboardHandler.GetDashboard)

	groups := admin.Group("/groups")
	groups.GET("", groupHandler.ListGroups)
	groups.POST("", groupHandler.CreateGroup)
	groups.GET("/:id", groupHandler.GetGroup)
	groups.PUT("/:id", groupHandler.UpdateGroup)
	groups.DELETE("/:id", groupHandler.DeleteGroup)

	admin.GET("/permissions", permissionHandler.ListPermissions)
	admin.GET("/permissions/:id", permissionHandler.GetPermission)

	admin.GET("/logentries", logEntryHandler.ListLogEntries)
	admin.GET("/logentries/:id", logEntryHandler.GetLogEntry)

	// External surface
	external := api.Group("/user/external/api/users", middleware.ExternalAPIKeyMiddleware(cfg.ExternalAPIKey))
	external.GET("", userHandler.ExternalListUsers)
	external.GET("/:id", userHandler.ExternalGetUser)

	// Documentation
	if cfg.DocsEnabled {
		registry, err := apidocs.LoadRegistry()
		if err != nil {
			return nil, fmt.Errorf("failed to load API categories: %w", err)
		}
		source := opts.DocsSource
		if source == nil {
			source = apidocs.SwagSource{}
		}
		apidocs.NewHandler(registry, source, opts.Metrics).RegisterRoutes(router)
	}

	router.NoRoute(middleware.NotFound(cfg.AdminRedirectURL))
	return router, nil
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
