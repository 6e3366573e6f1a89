package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tendant/simple-alt-pipeline/internal/workflows"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// JobRunner enqueues pipeline jobs and reports on them
type JobRunner interface {
	RunAsync(ctx context.Context, req pipeline.ProcessRequest) (string, error)
	GetStatus(ctx context.Context, runID string) (*pipeline.RunStatus, error)
}

// AsyncHandler handles asynchronous workflow requests
type AsyncHandler struct {
	runner JobRunner
}

// NewAsyncHandler creates a new async handler
func NewAsyncHandler(runner JobRunner) *AsyncHandler {
	return &AsyncHandler{runner: runner}
}

// HandleProcessAsync handles POST /v1/process - enqueues a job and returns immediately
func (h *AsyncHandler) HandleProcessAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req pipeline.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	log.Info().Str("job", req.Job).Str("session", req.Session).Msg("Enqueueing job")

	runID, err := h.runner.RunAsync(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		log.Error().Err(err).Int("status", status).Msg("Failed to enqueue job")
		http.Error(w, fmt.Sprintf("Failed to enqueue job: %v", err), status)
		return
	}

	log.Info().Str("run_id", runID).Msg("Job enqueued")

	writeJSON(w, http.StatusAccepted, pipeline.ProcessResponse{
		RunID:   runID,
		Job:     req.Job,
		Session: req.Session,
	})
}

// HandleStatus handles GET /v1/runs/{id} - returns run status
func (h *AsyncHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runID := r.PathValue("id")
	if runID == "" {
		http.Error(w, "run id is required", http.StatusBadRequest)
		return
	}

	status, err := h.runner.GetStatus(r.Context(), runID)
	if err != nil {
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run status")
		}
		http.Error(w, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// statusFor maps pipeline errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflows.ErrInvalidRequest), errors.Is(err, workflows.ErrWorkflowNotFound):
		return http.StatusBadRequest
	case errors.Is(err, workflows.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflows.ErrRuntimeUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
