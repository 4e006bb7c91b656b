package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"festivalhub/internal/access"
	"festivalhub/internal/app/coordinator"
	"festivalhub/internal/app/festivals"
	"festivalhub/internal/app/performances"
	"festivalhub/internal/config"
	"festivalhub/internal/httpapi"
	"festivalhub/internal/identity"
	"festivalhub/internal/metrics"
	"festivalhub/internal/store"
)

const shutdownTimeout = 15 * time.Second

type application struct {
	identity identity.Service
	handler  http.Handler
}

func newApplication(cfg *config.Config, dataStore store.Store, db *sql.DB, policy *access.Policy) *application {
	accounts := identity.New(dataStore, identity.Config{
		Secret:   []byte(cfg.Security.JWTSecret),
		TokenTTL: cfg.Security.TokenTTL,
	})

	opts := httpapi.Options{AllowedOrigins: cfg.CORS.AllowedOrigins}
	var recorder metrics.Recorder = metrics.Nop
	if cfg.Metrics.Enabled {
		m := metrics.New()
		recorder = m
		opts.Metrics = m
	}
	if db != nil {
		opts.Database = db
	}

	coord := coordinator.New(dataStore, policy, recorder)
	festivalSvc := festivals.New(dataStore, accounts, coord, policy, recorder)
	performanceSvc := performances.New(dataStore, accounts, coord, policy, recorder)

	log.Info().
		Str("store", cfg.Database.Driver).
		Bool("broad_roles", policy.Broad()).
		Bool("metrics", cfg.Metrics.Enabled).
		Msg("services configured")

	return &application{
		identity: accounts,
		handler:  httpapi.New(accounts, festivalSvc, performanceSvc, opts).Routes(),
	}
}

// serve runs the HTTP server until ctx is cancelled, then drains open requests.
func (a *application) serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
