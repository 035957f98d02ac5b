package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/consoleworks/authcore/pkg/authprov"
	"github.com/consoleworks/authcore/pkg/config"
	"github.com/consoleworks/authcore/pkg/database"
	"github.com/consoleworks/authcore/pkg/observability"
	"github.com/consoleworks/authcore/pkg/security"
)

// Authinit prepares a fresh (or upgraded) store: it applies schema
// migrations, registers the configured auth providers, and optionally seeds
// an administrator account.
func main() {
	configFile := flag.String("config", "", "Path to YAML config file (environment variables otherwise)")
	adminUser := flag.String("admin-user", "", "Administrator user id to seed (skipped when empty)")
	adminPassword := flag.String("admin-password", "", "Administrator password for the local provider")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger := setupLogger(*logLevel)
	logger.Info("Starting authcore initialization")

	cfg, err := loadConfig(*configFile)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Open(database.Config{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		InstanceID:  cfg.Database.InstanceID,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	logger.Info("Applying schema migrations")
	if err := database.RunMigrations(ctx, db.DB()); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	registry := authprov.NewRegistry()
	if err := registry.Register(authprov.LocalProvider()); err != nil {
		logger.Fatalf("Failed to register local provider: %v", err)
	}

	controller := security.NewController(
		db,
		registry,
		authprov.NewCipher(cfg.Security.CredentialSecret),
		observability.NewLogger(cfg.LogLevel(), os.Stdout),
		nil,
	)

	logger.Info("Registering auth providers")
	if err := controller.InitializeMetaInformation(ctx); err != nil {
		logger.Fatalf("Failed to initialize security metadata: %v", err)
	}

	if *adminUser != "" {
		if *adminPassword == "" {
			logger.Fatal("-admin-password is required when seeding an administrator")
		}
		if err := seedAdmin(ctx, controller, *adminUser, *adminPassword, logger); err != nil {
			logger.Fatalf("Failed to seed administrator: %v", err)
		}
	}

	logger.Info("Initialization complete")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfigFile(path)
	}
	return config.LoadConfig()
}

// seedAdmin creates the admin role and user when missing. Re-running against
// an already-seeded store only refreshes the administrator credentials.
func seedAdmin(ctx context.Context, controller *security.Controller, userID, password string, logger *logrus.Logger) error {
	const adminRoleID = "admin"

	role, err := controller.FindRole(ctx, adminRoleID)
	if err != nil {
		return err
	}
	if role == nil {
		logger.Infof("Creating role %q", adminRoleID)
		if err := controller.CreateRole(ctx, &security.Role{
			ID:          adminRoleID,
			Name:        "Administrator",
			Description: "Full server administration",
		}, userID); err != nil {
			return err
		}
		if err := controller.SetSubjectPermissions(ctx, adminRoleID,
			[]string{security.PermissionPublic, "admin"}, userID); err != nil {
			return err
		}
	}

	err = controller.CreateUser(ctx, security.NewUser(userID))
	if err != nil && !errors.Is(err, security.ErrSubjectExists) {
		return err
	}
	if err == nil {
		logger.Infof("Created user %q", userID)
	}

	if err := controller.SetUserRoles(ctx, userID, []string{adminRoleID}, userID); err != nil {
		return err
	}

	if err := controller.SetUserCredentials(ctx, userID, authprov.LocalProvider(), map[string]string{
		"user":     userID,
		"password": password,
	}); err != nil {
		return err
	}
	logger.Infof("Stored local credentials for %q", userID)
	return nil
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
