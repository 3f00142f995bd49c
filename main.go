package main

import (
	"context"
	"log"

	"episens/adapters/archive"
	"episens/adapters/postgres"
	"episens/app"
	"episens/internal"
	"episens/internal/config"
	"episens/internal/epidemic"
	"episens/internal/runner"
	"episens/ports"
	"episens/ui"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewDefaultLogger()

	store, cleanup, err := buildArchive(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize experiment archive: %v", err)
	}
	defer cleanup()

	service := app.NewExperimentService(
		epidemic.NewSIR(),
		store,
		nil,
		runner.Options{Workers: cfg.Runner.Workers, CellTimeout: cfg.Runner.CellTimeout},
		logger,
	)

	server := ui.NewServer(service, logger)
	if err := server.Start(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Report server failed: %v", err)
	}
}

// buildArchive picks postgres when DATABASE_URL is set, the file archive
// otherwise.
func buildArchive(cfg *config.Config, logger *internal.Logger) (ports.ExperimentArchive, func(), error) {
	if cfg.Database.URL != "" {
		ctx := context.Background()
		db, err := postgres.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("using postgres experiment archive")
		return postgres.NewExperimentRepository(db), func() { db.Close() }, nil
	}

	store, err := archive.NewFileArchive(cfg.Archive.Dir)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using file experiment archive at %s", cfg.Archive.Dir)
	return store, func() {}, nil
}
