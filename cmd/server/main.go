// Command server runs the ClipVault API: an HTTP service for saving links,
// retrieving and searching saved clips, and organizing them into collections.
// Brand-new clips are announced on the event bus for downstream enrichment.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clipvault/go-clipvault-api/internal/config"
	"github.com/clipvault/go-clipvault-api/internal/events"
	httpapi "github.com/clipvault/go-clipvault-api/internal/http"
	"github.com/clipvault/go-clipvault-api/internal/observability"
	"github.com/clipvault/go-clipvault-api/internal/repo"
	"github.com/clipvault/go-clipvault-api/internal/sysutil"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load .env in development; absence is fine in containers.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	// Logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	// Tracing
	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(c); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Storage
	db, err := repo.OpenSQLite(cfg.DBPath, cfg.OTEL.Enabled)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("opening database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrating schema")
	}

	// Event transport: NATS when configured, otherwise a no-op transport so
	// the API keeps working without a broker (events are simply not emitted).
	var transport events.Transport
	if cfg.Events.NATSURL != "" {
		nt, err := events.NewNATSTransport(cfg.Events.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.Events.NATSURL).Msg("connecting to NATS")
		}
		transport = nt
		log.Info().Str("url", cfg.Events.NATSURL).Str("subject", cfg.Events.Subject).Msg("event transport: nats")
	} else {
		transport = events.NoopTransport{}
		log.Warn().Msg("NATS_URL not set, clip.created events are disabled")
	}
	pub := events.NewPublisher(transport, events.Options{
		Subject:        cfg.Events.Subject,
		DLQSubject:     cfg.Events.DLQSubject,
		PublishTimeout: cfg.Events.PublishTimeout,
		DLQTimeout:     cfg.Events.DLQTimeout,
	})
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn().Err(err).Msg("closing event transport")
		}
	}()

	// HTTP
	r := gin.New()
	httpapi.RegisterRoutes(r, db, pub, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("version", version).
			Str("addr", srv.Addr).
			Str("base_path", cfg.APIBasePath).
			Msg("clipvault api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
