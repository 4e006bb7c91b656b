package main

import (
	"database/sql"
	"errors"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"festivalhub/internal/logging"
	"festivalhub/migrations"
)

const usage = "usage: migrate up|down|version|force <version>"

func main() {
	logging.SetGlobal(logging.New(logging.Config{Level: "info", Format: "text"}))

	if len(os.Args) < 2 {
		log.Fatal().Msg(usage)
	}

	_ = godotenv.Load("config/local.env")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal().Msg("DATABASE_URL env var is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("create postgres driver")
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		log.Fatal().Err(err).Msg("load embedded migrations")
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		log.Fatal().Err(err).Msg("create migrate instance")
	}

	switch os.Args[1] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("apply migrations")
		}
		log.Info().Msg("migrations applied")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("roll back migrations")
		}
		log.Info().Msg("migrations rolled back")
	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatal().Err(err).Msg("read version")
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
	case "force":
		if len(os.Args) != 3 {
			log.Fatal().Msg(usage)
		}
		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Msg("version must be a number")
		}
		if err := m.Force(version); err != nil {
			log.Fatal().Err(err).Msg("force version")
		}
		log.Info().Int("version", version).Msg("schema version forced")
	default:
		log.Fatal().Msg(usage)
	}
}
