package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/tendant/simple-alt-pipeline/internal/config"
	"github.com/tendant/simple-alt-pipeline/internal/logging"
	"github.com/tendant/simple-alt-pipeline/internal/workflows"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
	"github.com/tendant/simple-alt-pipeline/pkg/runner"
)

// Standalone pipeline runner: executes jobs synchronously in this process,
// without DBOS. The update ledger is used when LEDGER_DATABASE_URL is set.
func main() {
	var (
		jobs          = flag.String("job", "", "comma separated jobs to run in order, or \"all\" ("+strings.Join(pipeline.Jobs, ", ")+")")
		session       = flag.String("session", "", "session name; artifacts go to OUTPUTS_DIR/<session>")
		locales       = flag.String("locales", "", "comma separated locale codes for discover (default: all)")
		contentTypes  = flag.String("content-types", "", "comma separated MIME types for discover (default: image/*)")
		keys          = flag.String("keys", "", "comma separated usage keys for analyze_usages (default: all)")
		includeUnused = flag.Bool("include-unused", false, "keep images without usages in analyze_usages")
		dryRun        = flag.Bool("dry-run", false, "write batch files and results without calling the batch API or updating assets")
		force         = flag.Bool("force", false, "resubmit batches and rewrite descriptions already recorded")
	)
	flag.Parse()

	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogHuman)

	selected, err := parseJobs(*jobs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.LedgerDatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.LedgerDatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open ledger database")
		}
		defer db.Close()
	}

	deps, err := runner.NewDependencies(ctx, cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize pipeline")
	}

	workflowRunner := workflows.NewWorkflowRunner(nil)
	workflows.RegisterPipeline(workflowRunner, deps)

	base := pipeline.ProcessRequest{
		Session:       *session,
		Locales:       splitList(*locales),
		ContentTypes:  splitList(*contentTypes),
		Keys:          splitList(*keys),
		IncludeUnused: *includeUnused,
		DryRun:        *dryRun,
		Force:         *force,
	}

	for _, job := range selected {
		req := base
		req.Job = job

		result, err := workflowRunner.Run(&workflows.WorkflowContext{
			Ctx:     ctx,
			Request: req,
			RunID:   "standalone-" + uuid.NewString(),
		})
		if result != nil {
			printResult(job, result)
		}
		if err != nil {
			log.Error().Err(err).Str("job", job).Msg("Job failed")
			os.Exit(1)
		}
	}
}

func parseJobs(value string) ([]string, error) {
	if value == "all" {
		return pipeline.Jobs, nil
	}
	jobs := splitList(value)
	if len(jobs) == 0 {
		return nil, fmt.Errorf("-job is required")
	}
	for _, job := range jobs {
		if !pipeline.IsJob(job) {
			return nil, fmt.Errorf("unknown job %q", job)
		}
	}
	return jobs, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printResult(job string, result *workflows.WorkflowResult) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(map[string]interface{}{
		"job":    job,
		"result": result,
	})
}
