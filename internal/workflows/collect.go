package workflows

import (
	"fmt"
	"time"

	"github.com/tendant/simple-alt-pipeline/internal/logging"
	"github.com/tendant/simple-alt-pipeline/internal/openai"
	"github.com/tendant/simple-alt-pipeline/internal/storage"
	"github.com/tendant/simple-alt-pipeline/internal/throttle"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// DefaultPollInterval is the wait between batch status checks
const DefaultPollInterval = 30 * time.Second

// CollectWorkflow waits for submitted batches and maps their output back to images
type CollectWorkflow struct {
	batches BatchAPI
	store   *storage.FilesystemStorage
	poll    throttle.Throttle
}

// NewCollectWorkflow creates the result collection workflow. A nil poll
// throttle waits DefaultPollInterval between checks.
func NewCollectWorkflow(batches BatchAPI, store *storage.FilesystemStorage, poll throttle.Throttle) *CollectWorkflow {
	if poll == nil {
		poll = throttle.NewFixed(DefaultPollInterval)
	}
	return &CollectWorkflow{batches: batches, store: store, poll: poll}
}

// Name returns the workflow name
func (w *CollectWorkflow) Name() string {
	return "CollectResultsWorkflow"
}

// Execute polls every batch in batch-info.json until it is terminal and
// writes alt-tags.json
func (w *CollectWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	logger := logging.ForRun(wctx.RunID)
	ctx := wctx.Ctx
	req := wctx.Request

	session, err := openSession(w.store, req)
	if err != nil {
		return failed("collect results", err)
	}
	if w.batches == nil {
		return failed("collect results", fmt.Errorf("%w: batch API is not configured", ErrInvalidRequest))
	}

	var info pipeline.BatchInfo
	if err := storage.ReadJSON(ctx, session, pipeline.ArtifactBatchInfo, &info); err != nil {
		return failed("load batch info", err)
	}
	if info.DryRun {
		return failed("collect results", fmt.Errorf("%w: session %s was a dry run, no batch was submitted", ErrInvalidRequest, req.Session))
	}
	if len(info.Batches) == 0 {
		return failed("collect results", ErrNothingToProcess)
	}

	var (
		results []openai.BatchResult
		states  = make([]pipeline.BatchState, 0, len(info.Batches))
	)
	for _, entry := range info.Batches {
		batch, err := w.wait(wctx, entry)
		if err != nil {
			return failed(fmt.Sprintf("wait for batch %d", entry.BatchIndex), err)
		}
		states = append(states, pipeline.BatchState{
			BatchIndex: entry.BatchIndex,
			BatchID:    batch.ID,
			Status:     batch.Status,
			Completed:  batch.RequestCounts.Completed,
			Failed:     batch.RequestCounts.Failed,
			Total:      batch.RequestCounts.Total,
		})

		if batch.Status != openai.StatusCompleted {
			logger.Warn().Str("batch_id", batch.ID).Str("status", batch.Status).Msg("Batch did not complete, collecting partial results")
		}

		for _, fileID := range []string{batch.OutputFileID, batch.ErrorFileID} {
			if fileID == "" {
				continue
			}
			data, err := w.batches.DownloadFile(ctx, fileID)
			if err != nil {
				return failed("download batch output", err)
			}
			parsed, err := openai.ParseJSONL(data)
			if err != nil {
				return failed("parse batch output", err)
			}
			results = append(results, parsed...)
		}
	}

	tags := openai.MapResults(results, info.ImageMetadata)
	out := pipeline.AltTags{
		Results:     tags,
		Batches:     states,
		Usage:       openai.SumUsage(results),
		CollectedAt: time.Now().UTC(),
	}
	for _, t := range tags {
		if t.Error == "" {
			out.Successful++
		} else {
			out.Failed++
		}
	}

	if err := storage.WriteJSON(ctx, session, pipeline.ArtifactAltTags, out); err != nil {
		return failed("write alt tags", err)
	}

	logger.Info().
		Int("successful", out.Successful).
		Int("failed", out.Failed).
		Int("total_tokens", out.Usage.TotalTokens).
		Msg("Collected ALT text")

	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"session":      req.Session,
			"batches":      len(states),
			"successful":   out.Successful,
			"failed":       out.Failed,
			"total_tokens": out.Usage.TotalTokens,
			"artifact":     pipeline.ArtifactAltTags,
		},
	}, nil
}

// wait polls one batch until it reaches a terminal status
func (w *CollectWorkflow) wait(wctx *WorkflowContext, entry pipeline.BatchEntry) (*openai.Batch, error) {
	logger := logging.ForRun(wctx.RunID)

	for {
		batch, err := w.batches.RetrieveBatch(wctx.Ctx, entry.BatchID)
		if err != nil {
			return nil, err
		}
		logger.Info().
			Str("batch_id", batch.ID).
			Str("status", batch.Status).
			Int("completed", batch.RequestCounts.Completed).
			Int("failed", batch.RequestCounts.Failed).
			Int("total", batch.RequestCounts.Total).
			Msg("Batch status")
		if batch.Terminal() {
			return batch, nil
		}
		if err := w.poll.Wait(wctx.Ctx); err != nil {
			return nil, err
		}
	}
}
