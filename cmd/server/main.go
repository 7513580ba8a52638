/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Warp Progression Engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env and parse command-line flags
  2. Parse gamification configuration (levels, achievements, benefits)
  3. Initialize SQLite store
  4. Build ledgers, achievement engine, redemption workflow, facade
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: progression.db)
           Use ":memory:" for an in-memory database
  -config  Gamification config JSON path (default: built-in config)

CONFIGURATION ERRORS:
  A malformed level table or achievement rule set aborts startup.
  Config problems are never handled per-request.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/progression.db"

  # Run with custom gamification config
  ./server -config="./config/gamification.json"

ENVIRONMENT:
  PORT       Overrides -port when set
  LOG_LEVEL  zerolog level (debug, info, warn); default info

SEE ALSO:
  - api/server.go: Router configuration
  - factory/config.go: Configuration schema
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/warp/progression-engine/achievements"
	"github.com/warp/progression-engine/api"
	"github.com/warp/progression-engine/coins"
	"github.com/warp/progression-engine/core"
	"github.com/warp/progression-engine/factory"
	"github.com/warp/progression-engine/gamification"
	"github.com/warp/progression-engine/progression"
	"github.com/warp/progression-engine/redemption"
	"github.com/warp/progression-engine/store/sqlite"
)

func main() {
	// .env is optional; flags and real env still apply without it.
	_ = godotenv.Load()

	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "progression.db", "SQLite database path")
	configPath := flag.String("config", "", "Gamification config JSON path")
	flag.Parse()

	log := newLogger()

	if env := os.Getenv("PORT"); env != "" {
		if p, err := strconv.Atoi(env); err == nil {
			*port = p
		}
	}

	// Configuration
	var (
		loaded *factory.Loaded
		err    error
	)
	if *configPath != "" {
		loaded, err = factory.LoadFile(*configPath)
	} else {
		loaded, err = factory.Parse(factory.DefaultJSON())
	}
	if err != nil {
		log.Fatal().Err(err).Msg("invalid gamification configuration")
	}

	// Store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("failed to initialize database")
	}
	defer store.Close()

	// Domain wiring
	clock := core.SystemClock{}
	progressionLedger := progression.NewLedger(store, loaded.Levels)
	coinLedger := coins.NewLedger(store)
	workflow := redemption.NewWorkflow(store, coinLedger)

	engine, err := achievements.NewEngine(loaded.Achievements, store)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid achievement configuration")
	}

	notifier := &gamification.LogNotifier{Log: log}
	facade := gamification.NewFacade(
		progressionLedger, engine, coinLedger, workflow,
		loaded.Gamification, notifier, clock, log,
	)

	if err := seedBenefits(context.Background(), workflow, loaded.Benefits); err != nil {
		log.Fatal().Err(err).Msg("failed to seed benefit catalog")
	}

	// HTTP
	handler := api.NewHandler(facade, progressionLedger, coinLedger, workflow, engine, clock, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", *port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// seedBenefits inserts configured catalog items that are not in the store
// yet. Existing items are left alone so stock counts survive restarts.
func seedBenefits(ctx context.Context, workflow *redemption.Workflow, benefits []redemption.Benefit) error {
	for _, b := range benefits {
		if _, err := workflow.Benefit(ctx, b.ID); err == nil {
			continue
		} else if !core.IsNotFound(err) {
			return err
		}
		benefit := b
		if err := workflow.SaveBenefit(ctx, &benefit); err != nil {
			return err
		}
	}
	return nil
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		if parsed, err := zerolog.ParseLevel(env); err == nil {
			level = parsed
		}
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}
