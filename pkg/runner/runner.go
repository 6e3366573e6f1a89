package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/tendant/simple-alt-pipeline/internal/config"
	"github.com/tendant/simple-alt-pipeline/internal/dbosruntime"
	"github.com/tendant/simple-alt-pipeline/internal/workflows"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// Runner provides a high-level API for running pipeline jobs via DBOS
type Runner struct {
	runtime *dbosruntime.Runtime
	runner  *workflows.WorkflowRunner
}

// New creates a runner that executes jobs in this process. cfg.DBOSDatabaseURL
// is required; the update ledger lives in the same database.
func New(ctx context.Context, cfg *config.Config, appName string) (*Runner, error) {
	dbosRuntime, err := dbosruntime.NewRuntime(ctx, cfg.DBOS(appName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DBOS: %w", err)
	}

	deps, err := NewDependencies(ctx, cfg, dbosRuntime.DB())
	if err != nil {
		return nil, err
	}

	workflowRunner := workflows.NewWorkflowRunner(dbosRuntime)
	workflows.RegisterPipeline(workflowRunner, deps)

	// Launch DBOS (must be after workflow registration)
	if err := dbosRuntime.Launch(); err != nil {
		return nil, fmt.Errorf("failed to launch DBOS: %w", err)
	}

	return &Runner{
		runtime: dbosRuntime,
		runner:  workflowRunner,
	}, nil
}

// Enqueue starts any pipeline job and returns its run id
func (r *Runner) Enqueue(ctx context.Context, req pipeline.ProcessRequest) (string, error) {
	return r.runner.RunAsync(ctx, req)
}

// RunDiscover lists images without descriptions in the given locales (all when empty)
func (r *Runner) RunDiscover(ctx context.Context, session string, locales ...string) (string, error) {
	return r.Enqueue(ctx, pipeline.ProcessRequest{
		Session: session,
		Job:     pipeline.JobDiscover,
		Locales: locales,
	})
}

// RunAnalyze finds image usages and keeps images used under keys (all when empty)
func (r *Runner) RunAnalyze(ctx context.Context, session string, keys ...string) (string, error) {
	return r.Enqueue(ctx, pipeline.ProcessRequest{
		Session: session,
		Job:     pipeline.JobAnalyzeUsages,
		Keys:    keys,
	})
}

// RunGenerate submits ALT text batches for the session
func (r *Runner) RunGenerate(ctx context.Context, session string, dryRun bool) (string, error) {
	return r.Enqueue(ctx, pipeline.ProcessRequest{
		Session: session,
		Job:     pipeline.JobGenerateAlt,
		DryRun:  dryRun,
	})
}

// RunCollect waits for the session's batches and collects their results
func (r *Runner) RunCollect(ctx context.Context, session string) (string, error) {
	return r.Enqueue(ctx, pipeline.ProcessRequest{
		Session: session,
		Job:     pipeline.JobCollectResults,
	})
}

// RunUpdate writes collected ALT text to asset descriptions
func (r *Runner) RunUpdate(ctx context.Context, session string, dryRun bool) (string, error) {
	return r.Enqueue(ctx, pipeline.ProcessRequest{
		Session: session,
		Job:     pipeline.JobUpdateDescriptions,
		DryRun:  dryRun,
	})
}

// Status returns the state of a run
func (r *Runner) Status(ctx context.Context, runID string) (*pipeline.RunStatus, error) {
	return r.runner.GetStatus(ctx, runID)
}

// Shutdown gracefully shuts down the pipeline runner
func (r *Runner) Shutdown(timeout time.Duration) error {
	if r.runtime == nil {
		return nil
	}
	return r.runtime.Shutdown(timeout)
}
