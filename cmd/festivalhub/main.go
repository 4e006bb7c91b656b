package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"festivalhub/internal/access"
	"festivalhub/internal/config"
	"festivalhub/internal/logging"
	"festivalhub/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.SetGlobal(logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		dataStore store.Store
		db        *sql.DB
	)
	switch cfg.Database.Driver {
	case "memory":
		dataStore = store.NewMemory()
		log.Warn().Msg("using in-memory store, data is lost on restart")
	default:
		db, err = openDatabase(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect database")
		}
		defer db.Close()
		dataStore = store.NewPostgres(db)
	}

	app := newApplication(cfg, dataStore, db, access.NewPolicy(cfg.Access.BroadRoles))

	if cfg.SeedDemoData {
		if err := bootstrapDemoData(ctx, app.identity); err != nil {
			log.Fatal().Err(err).Msg("seed demo data")
		}
	}

	if err := app.serve(ctx, cfg.Server.Addr()); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
