package runner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tendant/simple-alt-pipeline/internal/config"
	"github.com/tendant/simple-alt-pipeline/internal/contentstack"
	"github.com/tendant/simple-alt-pipeline/internal/dedupe"
	"github.com/tendant/simple-alt-pipeline/internal/openai"
	"github.com/tendant/simple-alt-pipeline/internal/storage"
	"github.com/tendant/simple-alt-pipeline/internal/throttle"
	"github.com/tendant/simple-alt-pipeline/internal/usage"
	"github.com/tendant/simple-alt-pipeline/internal/workflows"
)

// NewDependencies builds the pipeline's clients and stores from cfg. The
// ledger is skipped when db is nil; the batch API is skipped when no OpenAI
// key is configured, leaving generate_alt to dry runs.
func NewDependencies(ctx context.Context, cfg *config.Config, db *sql.DB) (workflows.Dependencies, error) {
	var deps workflows.Dependencies

	cms, err := contentstack.New(cfg.Contentstack())
	if err != nil {
		return deps, fmt.Errorf("failed to create contentstack client: %w", err)
	}

	store, err := storage.NewFilesystemStorage(cfg.OutputsDir)
	if err != nil {
		return deps, err
	}

	instructions, err := workflows.LoadInstructions(cfg.InstructionsPath)
	if err != nil {
		return deps, err
	}

	deps = workflows.Dependencies{
		CMS:       cms,
		Images:    storage.NewHTTPImageReader(cfg.HTTPTimeout, nil),
		Store:     store,
		MaxAssets: cfg.MaxAssets,
		Analyzer: usage.Options{
			Throttle:    throttle.NewFixed(cfg.CMSRequestDelay),
			Concurrency: cfg.AnalyzeConcurrency,
		},
		Generate: workflows.GenerateOptions{
			Model:        cfg.OpenAIModel,
			Instructions: instructions,
			BatchSize:    cfg.BatchSize,
		},
		PollThrottle:   throttle.NewFixed(cfg.BatchPollInterval),
		UpdateThrottle: throttle.NewFixed(cfg.UpdateDelay),
	}

	batches, err := openai.New(cfg.OpenAI())
	switch {
	case errors.Is(err, openai.ErrMissingAPIKey):
		log.Warn().Msg("OPENAI_API_KEY not set, generate_alt is limited to dry runs")
	case err != nil:
		return deps, fmt.Errorf("failed to create batch client: %w", err)
	default:
		deps.Batches = batches
	}

	if db != nil {
		tracker, err := dedupe.NewTracker(ctx, db)
		if err != nil {
			return deps, err
		}
		deps.Ledger = tracker
	}

	return deps, nil
}
