package main

import (
	"fmt"
	"os"

	"dashboard/internal/config"
	"dashboard/internal/database"
	"dashboard/internal/logger"
	"dashboard/internal/observability"
	"dashboard/internal/server"
	"dashboard/internal/services"
	"dashboard/internal/validator"

	_ "dashboard/internal/docs" // Import swagger docs
)

// @title           Dashboard API
// @version         1.0
// @description     Administration backend: users, groups, permissions and the audit trail.

// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

func main() {
	appConfig, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Options{
		Env:        appConfig.Env,
		Level:      appConfig.LogLevel,
		File:       appConfig.LogFile,
		MaxSizeMB:  appConfig.LogMaxSizeMB,
		MaxBackups: appConfig.LogMaxBackups,
		MaxAgeDays: appConfig.LogMaxAgeDays,
	})
	defer logger.Sync()

	if err := run(appConfig); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run(appConfig *config.Config) error {
	log := logger.Get()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	db := dbManager.DB()
	if err := services.NewPermissionService(db).SyncDefaults(); err != nil {
		return fmt.Errorf("failed to sync default permissions: %w", err)
	}

	validator.Register()

	router, err := server.NewRouter(server.Options{
		Config:  appConfig,
		DB:      db,
		Metrics: observability.NewMetrics(),
	})
	if err != nil {
		return err
	}

	log.Infow("Starting dashboard server",
		"port", appConfig.Port,
		"server_mode", appConfig.ServerMode,
		"docs_enabled", appConfig.DocsEnabled,
	)
	if appConfig.DocsEnabled {
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/", appConfig.Port)
	}
	return router.Run(":" + appConfig.Port)
}
