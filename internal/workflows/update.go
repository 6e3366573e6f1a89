package workflows

import (
	"time"

	"github.com/tendant/simple-alt-pipeline/internal/contentstack"
	"github.com/tendant/simple-alt-pipeline/internal/logging"
	"github.com/tendant/simple-alt-pipeline/internal/metrics"
	"github.com/tendant/simple-alt-pipeline/internal/storage"
	"github.com/tendant/simple-alt-pipeline/internal/throttle"
	"github.com/tendant/simple-alt-pipeline/internal/usage"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// DefaultUpdateDelay spaces description updates
const DefaultUpdateDelay = 500 * time.Millisecond

// UpdateWorkflow writes collected ALT text into asset descriptions
type UpdateWorkflow struct {
	cms      DescriptionUpdater
	ledger   Ledger
	store    *storage.FilesystemStorage
	throttle throttle.Throttle
}

// NewUpdateWorkflow creates the description update workflow. ledger may be
// nil; a nil throttle waits DefaultUpdateDelay between updates.
func NewUpdateWorkflow(cms DescriptionUpdater, ledger Ledger, store *storage.FilesystemStorage, th throttle.Throttle) *UpdateWorkflow {
	if th == nil {
		th = throttle.NewFixed(DefaultUpdateDelay)
	}
	return &UpdateWorkflow{cms: cms, ledger: ledger, store: store, throttle: th}
}

// Name returns the workflow name
func (w *UpdateWorkflow) Name() string {
	return "UpdateDescriptionsWorkflow"
}

// Execute applies alt-tags.json and writes results.json
func (w *UpdateWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	logger := logging.ForRun(wctx.RunID)
	ctx := wctx.Ctx
	req := wctx.Request

	session, err := openSession(w.store, req)
	if err != nil {
		return failed("update descriptions", err)
	}

	var tags pipeline.AltTags
	if err := storage.ReadJSON(ctx, session, pipeline.ArtifactAltTags, &tags); err != nil {
		return failed("load alt tags", err)
	}

	out := pipeline.UpdateResults{
		Results: []pipeline.UpdateResult{},
		DryRun:  req.DryRun,
	}
	var abortErr error
	written := 0

	for _, tag := range tags.Results {
		if tag.Error != "" || contentstack.IsBlank(tag.AltText) {
			continue
		}
		result := pipeline.UpdateResult{UID: tag.UID, Locale: tag.Locale, AltText: tag.AltText}

		switch {
		case w.alreadyApplied(wctx, tag):
			result.Status = pipeline.UpdateSkipped
			out.Skipped++

		case req.DryRun:
			result.Status = pipeline.UpdateDryRun
			out.Updated++

		default:
			if written > 0 {
				if err := w.throttle.Wait(ctx); err != nil {
					abortErr = err
					break
				}
			}
			written++

			if err := w.cms.UpdateAssetDescription(ctx, tag.UID, tag.Locale, tag.AltText); err != nil {
				logger.Warn().Err(err).Str("asset_uid", tag.UID).Str("locale", tag.Locale).Msg("Failed to update description")
				result.Status = pipeline.UpdateFailed
				result.Error = err.Error()
				out.Failed++
				if usage.IsFatal(err) || ctx.Err() != nil {
					abortErr = err
				}
				break
			}

			result.Status = pipeline.UpdateSuccess
			out.Updated++
			if w.ledger != nil {
				if err := w.ledger.Record(ctx, tag.UID, tag.Locale, tag.AltText, wctx.RunID); err != nil {
					logger.Warn().Err(err).Str("asset_uid", tag.UID).Msg("Failed to record update")
				}
			}
		}

		if result.Status != "" {
			metrics.AssetUpdates.WithLabelValues(result.Status).Inc()
			out.Results = append(out.Results, result)
		}
		if abortErr != nil {
			break
		}
	}

	out.UpdatedAt = time.Now().UTC()
	if err := storage.WriteJSON(ctx, session, pipeline.ArtifactResults, out); err != nil {
		return failed("write results", err)
	}
	if abortErr != nil {
		return failed("update descriptions", abortErr)
	}

	logger.Info().
		Int("updated", out.Updated).
		Int("skipped", out.Skipped).
		Int("failed", out.Failed).
		Bool("dry_run", req.DryRun).
		Msg("Descriptions updated")

	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"session":  req.Session,
			"updated":  out.Updated,
			"skipped":  out.Skipped,
			"failed":   out.Failed,
			"dry_run":  req.DryRun,
			"artifact": pipeline.ArtifactResults,
		},
	}, nil
}

// alreadyApplied reports whether the ledger has this asset and locale. Force ignores the ledger.
func (w *UpdateWorkflow) alreadyApplied(wctx *WorkflowContext, tag pipeline.AltTag) bool {
	if w.ledger == nil || wctx.Request.Force {
		return false
	}
	has, err := w.ledger.Has(wctx.Ctx, tag.UID, tag.Locale)
	if err != nil {
		logger := logging.ForRun(wctx.RunID)
		logger.Warn().Err(err).Str("asset_uid", tag.UID).Msg("Ledger lookup failed")
		return false
	}
	return has
}
