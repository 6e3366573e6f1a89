package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dbos-inc/dbos-transact-golang/dbos"

	"github.com/tendant/simple-alt-pipeline/internal/dbosruntime"
	"github.com/tendant/simple-alt-pipeline/internal/logging"
	"github.com/tendant/simple-alt-pipeline/internal/metrics"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// WorkflowContext contains context for workflow execution
type WorkflowContext struct {
	Ctx     context.Context
	Request pipeline.ProcessRequest
	RunID   string
}

// WorkflowResult contains the result of workflow execution
type WorkflowResult struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error,omitempty"`
	Outputs map[string]interface{} `json:"outputs,omitempty"`
}

// Workflow defines the interface for processing workflows
type Workflow interface {
	// Execute runs the workflow
	Execute(wctx *WorkflowContext) (*WorkflowResult, error)

	// Name returns the workflow name
	Name() string
}

// WorkflowRunner executes workflows
type WorkflowRunner struct {
	workflows   map[string]Workflow
	dbosRuntime *dbosruntime.Runtime
}

// NewWorkflowRunner creates a workflow runner. A nil runtime limits the
// runner to synchronous execution.
func NewWorkflowRunner(dbosRuntime *dbosruntime.Runtime) *WorkflowRunner {
	runner := &WorkflowRunner{
		workflows:   make(map[string]Workflow),
		dbosRuntime: dbosRuntime,
	}

	if dbosRuntime != nil {
		dbos.RegisterWorkflow(dbosRuntime.Context(), runner.executeWorkflowDBOS)
	}

	return runner
}

// Register registers a workflow
func (r *WorkflowRunner) Register(job string, workflow Workflow) {
	r.workflows[job] = workflow
}

// Jobs returns the registered job names in pipeline order
func (r *WorkflowRunner) Jobs() []string {
	jobs := make([]string, 0, len(r.workflows))
	for _, job := range pipeline.Jobs {
		if _, ok := r.workflows[job]; ok {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// Run executes a workflow synchronously
func (r *WorkflowRunner) Run(wctx *WorkflowContext) (*WorkflowResult, error) {
	if err := ValidateRequest(wctx.Request); err != nil {
		return &WorkflowResult{Success: false, Error: err.Error()}, err
	}
	return r.execute(wctx)
}

// RunAsync enqueues a workflow for async execution via DBOS
func (r *WorkflowRunner) RunAsync(ctx context.Context, req pipeline.ProcessRequest) (string, error) {
	if r.dbosRuntime == nil {
		return "", ErrRuntimeUnavailable
	}
	if err := ValidateRequest(req); err != nil {
		return "", err
	}
	if _, ok := r.workflows[req.Job]; !ok {
		return "", fmt.Errorf("job %s: %w", req.Job, ErrWorkflowNotFound)
	}

	workflowID := fmt.Sprintf("%s-%s-%d", req.Job, req.Session, time.Now().UnixNano())

	handle, err := dbos.RunWorkflow[pipeline.ProcessRequest, *WorkflowResult](
		r.dbosRuntime.Context(),
		r.executeWorkflowDBOS,
		req,
		dbos.WithWorkflowID(workflowID),
		dbos.WithQueue(r.dbosRuntime.QueueName()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue workflow: %w", err)
	}

	return handle.GetWorkflowID(), nil
}

// executeWorkflowDBOS is the DBOS workflow function that wraps pipeline workflows
func (r *WorkflowRunner) executeWorkflowDBOS(dbosCtx dbos.DBOSContext, req pipeline.ProcessRequest) (*WorkflowResult, error) {
	workflowID, err := dbosCtx.GetWorkflowID()
	if err != nil {
		return &WorkflowResult{Success: false, Error: err.Error()}, err
	}

	return r.execute(&WorkflowContext{
		Ctx:     dbosCtx,
		Request: req,
		RunID:   workflowID,
	})
}

func (r *WorkflowRunner) execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	workflow, ok := r.workflows[wctx.Request.Job]
	if !ok {
		err := fmt.Errorf("job %s: %w", wctx.Request.Job, ErrWorkflowNotFound)
		return &WorkflowResult{Success: false, Error: err.Error()}, err
	}

	logger := logging.ForRun(wctx.RunID)
	logger.Info().
		Str("job", wctx.Request.Job).
		Str("session", wctx.Request.Session).
		Str("workflow", workflow.Name()).
		Msg("Starting workflow")

	start := time.Now()
	result, err := workflow.Execute(wctx)
	if err == nil && result != nil && !result.Success {
		err = fmt.Errorf("%w: %s", ErrStepFailed, result.Error)
	}
	metrics.WorkflowRuns.WithLabelValues(wctx.Request.Job, metrics.Outcome(err)).Inc()

	if err != nil {
		logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Workflow failed")
		return result, err
	}
	logger.Info().Dur("elapsed", time.Since(start)).Msg("Workflow completed")
	return result, nil
}

// GetStatus retrieves the status of an enqueued workflow execution
func (r *WorkflowRunner) GetStatus(ctx context.Context, runID string) (*pipeline.RunStatus, error) {
	if r.dbosRuntime == nil {
		return nil, ErrRuntimeUnavailable
	}

	info, err := r.dbosRuntime.GetWorkflowStatus(ctx, runID)
	if err != nil {
		if errors.Is(err, dbosruntime.ErrNotFound) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
		}
		return nil, err
	}

	return &pipeline.RunStatus{
		RunID:     info.WorkflowUUID,
		Name:      info.Name,
		State:     RunState(info.Status),
		CreatedAt: info.CreatedAt,
		UpdatedAt: info.UpdatedAt,
		Error:     info.Error,
	}, nil
}

// RunState maps a DBOS workflow status to a run state
func RunState(status string) string {
	switch strings.ToUpper(status) {
	case "ENQUEUED":
		return "queued"
	case "PENDING":
		return "running"
	case "SUCCESS":
		return "succeeded"
	case "ERROR", "MAX_RECOVERY_ATTEMPTS_EXCEEDED", "RETRIES_EXCEEDED":
		return "failed"
	case "CANCELLED":
		return "cancelled"
	default:
		return strings.ToLower(status)
	}
}
