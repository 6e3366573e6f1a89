package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tendant/simple-alt-pipeline/internal/config"
	"github.com/tendant/simple-alt-pipeline/internal/dbosruntime"
	"github.com/tendant/simple-alt-pipeline/internal/handlers"
	"github.com/tendant/simple-alt-pipeline/internal/logging"
	"github.com/tendant/simple-alt-pipeline/internal/usage"
	"github.com/tendant/simple-alt-pipeline/internal/workflows"
	"github.com/tendant/simple-alt-pipeline/pkg/runner"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogHuman)

	ctx := context.Background()

	dbosRuntime, err := dbosruntime.NewRuntime(ctx, cfg.DBOS("pipeline-worker"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize DBOS")
	}

	deps, err := runner.NewDependencies(ctx, cfg, dbosRuntime.DB())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize pipeline")
	}

	// Initialize workflow runner with DBOS support (registers workflows with DBOS)
	workflowRunner := workflows.NewWorkflowRunner(dbosRuntime)
	workflows.RegisterPipeline(workflowRunner, deps)
	log.Info().Strs("jobs", workflowRunner.Jobs()).Msg("Registered pipeline workflows")

	// Launch DBOS (must be done after workflow registration)
	if err := dbosRuntime.Launch(); err != nil {
		log.Fatal().Err(err).Msg("Failed to launch DBOS")
	}
	defer dbosRuntime.Shutdown(10 * time.Second)

	log.Info().
		Str("queue", dbosRuntime.QueueName()).
		Int("concurrency", dbosRuntime.Concurrency()).
		Msg("DBOS runtime initialized")

	analyzer := usage.NewAnalyzer(deps.CMS, deps.Analyzer)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handlers.NewMux(workflowRunner, analyzer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Pipeline worker starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
