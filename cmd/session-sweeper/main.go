package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/consoleworks/authcore/pkg/authprov"
	"github.com/consoleworks/authcore/pkg/config"
	"github.com/consoleworks/authcore/pkg/database"
	"github.com/consoleworks/authcore/pkg/observability"
	"github.com/consoleworks/authcore/pkg/security"
)

var (
	configFile = flag.String("config", "", "Path to YAML config file (environment variables otherwise)")
	runOnce    = flag.Bool("run-once", false, "Run one sweep and exit (for testing)")
)

// Session sweeper removes session rows that have been idle longer than the
// configured retention. One sweeper serves all instances sharing the store.
func main() {
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
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
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	registry := authprov.NewRegistry()
	if err := registry.Register(authprov.LocalProvider()); err != nil {
		log.Fatalf("Failed to register local provider: %v", err)
	}

	controller := security.NewController(
		db,
		registry,
		authprov.NewCipher(cfg.Security.CredentialSecret),
		observability.NewLogger(cfg.LogLevel(), os.Stdout),
		nil,
	)

	retention := cfg.Security.SessionRetention

	if *runOnce {
		if err := sweep(controller, retention); err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}
		return
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Security.SweepSchedule, func() {
		if err := sweep(controller, retention); err != nil {
			log.Printf("Sweep failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule sweep: %v", err)
	}

	c.Start()
	log.Println("Session sweeper started")
	log.Printf("Sweep schedule: %s", cfg.Security.SweepSchedule)
	log.Printf("Session retention: %s", retention)

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutting down gracefully...")

	ctx := c.Stop()
	<-ctx.Done()

	log.Println("Sweeper stopped")
}

func sweep(controller *security.Controller, retention time.Duration) error {
	cutoff := time.Now().UTC().Add(-retention)
	log.Printf("Sweeping sessions idle since %s", cutoff.Format(time.RFC3339))

	purged, err := controller.PurgeStaleSessions(context.Background(), cutoff)
	if err != nil {
		return err
	}

	log.Printf("Removed %d stale sessions", purged)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfigFile(path)
	}
	return config.LoadConfig()
}
