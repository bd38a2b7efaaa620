package main

import (
	"errors"
	"flag"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gymlane/gymlane/internal/config"
	"github.com/gymlane/gymlane/internal/logger"
	_ "github.com/lib/pq"
)

func main() {
	down := flag.Bool("down", false, "Roll back the most recent migration instead of migrating up")
	source := flag.String("source", "file://migrations", "Migration source URL")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)

	m, err := migrate.New(*source, cfg.Postgres.GetDSN())
	if err != nil {
		logger.Fatalw("Failed to initialize migrations", "error", err)
	}
	defer m.Close()

	if *down {
		logger.Info("Rolling back one migration...")
		err = m.Steps(-1)
	} else {
		logger.Info("Running database migrations...")
		err = m.Up()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatalw("Migration failed", "error", err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		logger.Fatalw("Failed to read migration version", "error", verr)
	}
	logger.Infow("Migration completed", "version", version, "dirty", dirty)
}
