package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/flexprice/paysync/internal/config"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/postgres"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Print migration SQL without executing it")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall migration timeout")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("connecting to database", "host", cfg.Postgres.Host, "dbname", cfg.Postgres.DBName)
	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *dryRun {
		logger.Info("dry run mode, printing pending migrations")
	}

	if err := db.Migrate(ctx, *dryRun, os.Stdout); err != nil {
		logger.Fatalw("migration failed", "error", err)
	}

	logger.Info("migration completed successfully")
}
