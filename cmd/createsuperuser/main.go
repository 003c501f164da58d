// Command createsuperuser creates a superuser and prints a bearer token
// for it. Running it again for an existing superuser only issues a new
// token.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"dashboard/internal/config"
	"dashboard/internal/database"
	apperrors "dashboard/internal/errors"
	"dashboard/internal/logger"
	"dashboard/internal/middleware"
	"dashboard/internal/models"
	"dashboard/internal/services"
)

func main() {
	logger.Init(logger.Options{Env: os.Getenv("ENV"), Level: os.Getenv("LOG_LEVEL")})
	defer logger.Sync()

	if err := run(os.Args[1:]); err != nil {
		logger.Get().Fatalf("createsuperuser: %v", err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	username := fs.String("username", "", "username of the superuser")
	email := fs.String("email", "", "email of the superuser")
	password := fs.String("password", os.Getenv("SUPERUSER_PASSWORD"), "password (defaults to $SUPERUSER_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("usage: createsuperuser -username NAME [-email EMAIL] [-password PASSWORD]")
	}

	if _, err := config.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return err
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return err
	}

	db := dbManager.DB()
	if err := services.NewPermissionService(db).SyncDefaults(); err != nil {
		return err
	}

	user, err := ensureSuperuser(services.NewUserService(db), services.NewAuditService(db, nil), *username, *email, *password)
	if err != nil {
		return err
	}

	token, err := middleware.GenerateAccessToken(user)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	fmt.Println(token)
	return nil
}

// ensureSuperuser returns the superuser named username, creating it when
// it does not exist yet.
func ensureSuperuser(users services.UserServicer, audit services.AuditServicer, username, email, password string) (*models.User, error) {
	existing, err := users.GetUserByUsername(username)
	switch {
	case err == nil:
		if !existing.IsSuperuser || !existing.IsActive {
			return nil, fmt.Errorf("user %q exists but is not an active superuser", username)
		}
		logger.Get().Infow("Superuser already exists, issuing token", "username", username)
		return existing, nil
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return nil, err
	}

	if password == "" {
		return nil, fmt.Errorf("a password is required to create %q", username)
	}

	yes := true
	fields := services.UserFields{
		Username:    &username,
		Password:    &password,
		IsActive:    &yes,
		IsStaff:     &yes,
		IsSuperuser: &yes,
	}
	if email != "" {
		fields.Email = &email
	}

	user, err := users.CreateUser(fields)
	if err != nil {
		return nil, err
	}
	audit.LogAddition(user.ID, user, audit.ConstructChangeMessage(user.ID, nil, models.UserLabels, nil, true))
	logger.Get().Infow("Superuser created", "username", username, "user_id", user.ID)
	return user, nil
}
