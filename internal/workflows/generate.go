package workflows

import (
	"bytes"
	"fmt"
	"time"

	"github.com/tendant/simple-alt-pipeline/internal/logging"
	"github.com/tendant/simple-alt-pipeline/internal/metrics"
	"github.com/tendant/simple-alt-pipeline/internal/openai"
	"github.com/tendant/simple-alt-pipeline/internal/storage"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// DefaultBatchSize is how many requests go into one submitted batch
const DefaultBatchSize = 5

// GenerateOptions configures batch preparation
type GenerateOptions struct {
	Model        string // defaults to openai.DefaultModel
	Instructions string // defaults to DefaultInstructions
	BatchSize    int    // defaults to DefaultBatchSize
}

// GenerateWorkflow prepares ALT text requests for the selected images and
// submits them to the batch API
type GenerateWorkflow struct {
	batches   BatchAPI
	titler    EntryTitler
	previewer *Previewer
	store     *storage.FilesystemStorage
	opts      GenerateOptions
}

// NewGenerateWorkflow creates the batch generation workflow. batches may be
// nil when only dry runs are expected.
func NewGenerateWorkflow(batches BatchAPI, titler EntryTitler, previewer *Previewer, store *storage.FilesystemStorage, opts GenerateOptions) *GenerateWorkflow {
	if opts.Model == "" {
		opts.Model = openai.DefaultModel
	}
	if opts.Instructions == "" {
		opts.Instructions = DefaultInstructions
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &GenerateWorkflow{
		batches:   batches,
		titler:    titler,
		previewer: previewer,
		store:     store,
		opts:      opts,
	}
}

// Name returns the workflow name
func (w *GenerateWorkflow) Name() string {
	return "GenerateAltWorkflow"
}

// Execute reads filtered-images.json, writes one JSONL file per batch,
// submits them unless dry_run is set and writes batch-info.json
func (w *GenerateWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	logger := logging.ForRun(wctx.RunID)
	ctx := wctx.Ctx
	req := wctx.Request

	session, err := openSession(w.store, req)
	if err != nil {
		return failed("generate alt", err)
	}

	if !req.Force {
		exists, err := session.Exists(ctx, pipeline.ArtifactBatchInfo)
		if err != nil {
			return failed("check batch info", err)
		}
		if exists {
			return failed("generate alt", fmt.Errorf("%w: batches already prepared for session %s, set force to resubmit", ErrInvalidRequest, req.Session))
		}
	}
	if !req.DryRun && w.batches == nil {
		return failed("generate alt", fmt.Errorf("%w: batch API is not configured", ErrInvalidRequest))
	}

	var filtered pipeline.FilteredImages
	if err := storage.ReadJSON(ctx, session, pipeline.ArtifactFilteredImages, &filtered); err != nil {
		return failed("load filtered images", err)
	}
	if len(filtered.Images) == 0 {
		return failed("generate alt", ErrNothingToProcess)
	}

	requests, metadata, err := w.prepare(wctx, filtered.Images)
	if err != nil {
		return failed("prepare requests", err)
	}
	if len(requests) == 0 {
		return failed("prepare requests", fmt.Errorf("%w: no image could be prepared", ErrNothingToProcess))
	}
	logger.Info().Int("prepared", len(requests)).Int("images", len(metadata)).Msg("Prepared batch requests")

	info := pipeline.BatchInfo{
		ImageMetadata: metadata,
		TotalRequests: len(requests),
		TotalImages:   len(filtered.Images),
		Model:         w.opts.Model,
		DryRun:        req.DryRun,
		CreatedAt:     time.Now().UTC(),
	}

	submitErr := w.submit(wctx, session, SplitBatches(metadata, w.opts.BatchSize), requests, &info)

	// batches created before a failure must stay discoverable
	if err := storage.WriteJSON(ctx, session, pipeline.ArtifactBatchInfo, info); err != nil {
		return failed("write batch info", err)
	}
	if submitErr != nil {
		return failed("submit batches", submitErr)
	}

	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"session":        req.Session,
			"batches":        len(info.Batches),
			"total_requests": info.TotalRequests,
			"total_images":   info.TotalImages,
			"not_prepared":   len(metadata) - len(requests),
			"dry_run":        req.DryRun,
			"artifact":       pipeline.ArtifactBatchInfo,
		},
	}, nil
}

// prepare builds one request per image. Images that cannot be fetched keep
// a metadata entry without custom id.
func (w *GenerateWorkflow) prepare(wctx *WorkflowContext, images []pipeline.Image) (map[string]openai.BatchRequest, []pipeline.ImageRequest, error) {
	logger := logging.ForRun(wctx.RunID)
	ctx := wctx.Ctx

	titles := make(map[string]string)
	requests := make(map[string]openai.BatchRequest, len(images))
	metadata := make([]pipeline.ImageRequest, 0, len(images))

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		meta := pipeline.ImageRequest{
			UID:      img.UID,
			Filename: img.Filename,
			URL:      img.URL,
			Locale:   img.Locale,
			Context:  UsageContext(ctx, w.titler, img.Usages, titles),
		}

		dataURL, err := w.previewer.DataURL(ctx, img.URL)
		if err != nil {
			logger.Warn().Err(err).Str("asset_uid", img.UID).Msg("Failed to prepare request")
			meta.Error = err.Error()
			metadata = append(metadata, meta)
			continue
		}

		meta.CustomID = fmt.Sprintf("image-%s-%d", img.UID, i)
		requests[meta.CustomID] = openai.NewAltTextRequest(
			meta.CustomID,
			w.opts.Model,
			w.opts.Instructions,
			UserMessage(img.LocaleName, meta.Context),
			dataURL,
		)
		metadata = append(metadata, meta)
		metrics.BatchRequests.Inc()
	}
	return requests, metadata, nil
}

// submit writes each batch's JSONL file and, unless dry running, uploads and
// starts it. info.Batches grows as batches are created.
func (w *GenerateWorkflow) submit(wctx *WorkflowContext, session *storage.FilesystemStorage, batches []pipeline.BatchEntry, requests map[string]openai.BatchRequest, info *pipeline.BatchInfo) error {
	logger := logging.ForRun(wctx.RunID)
	ctx := wctx.Ctx

	info.Batches = make([]pipeline.BatchEntry, 0, len(batches))
	for _, b := range batches {
		lines := make([]openai.BatchRequest, 0, b.ImageEndIndex-b.ImageStartIndex)
		for _, m := range info.ImageMetadata[b.ImageStartIndex:b.ImageEndIndex] {
			if r, ok := requests[m.CustomID]; ok {
				lines = append(lines, r)
			}
		}

		content, err := openai.EncodeJSONL(lines)
		if err != nil {
			return err
		}
		b.RequestFile = fmt.Sprintf("batch-requests-%d.jsonl", b.BatchIndex)
		if err := session.Put(ctx, b.RequestFile, bytes.NewReader(content)); err != nil {
			return fmt.Errorf("failed to write %s: %w", b.RequestFile, err)
		}

		if !wctx.Request.DryRun {
			fileID, err := w.batches.UploadBatchFile(ctx, b.RequestFile, content)
			if err != nil {
				return fmt.Errorf("batch %d: %w", b.BatchIndex, err)
			}
			batch, err := w.batches.CreateBatch(ctx, fileID)
			if err != nil {
				return fmt.Errorf("batch %d: %w", b.BatchIndex, err)
			}
			b.InputFileID = fileID
			b.BatchID = batch.ID
		}

		info.Batches = append(info.Batches, b)
		logger.Info().
			Int("batch", b.BatchIndex).
			Str("batch_id", b.BatchID).
			Int("requests", len(lines)).
			Bool("dry_run", wctx.Request.DryRun).
			Msg("Batch prepared")
	}
	return nil
}

// SplitBatches partitions the metadata into index ranges holding at most
// size prepared requests each. Unprepared images ride along with the range
// they fall in.
func SplitBatches(metadata []pipeline.ImageRequest, size int) []pipeline.BatchEntry {
	if size <= 0 {
		size = DefaultBatchSize
	}

	var batches []pipeline.BatchEntry
	start, count := 0, 0
	for i, m := range metadata {
		if m.CustomID != "" {
			count++
		}
		if count == size {
			batches = append(batches, pipeline.BatchEntry{
				BatchIndex:      len(batches),
				ImageStartIndex: start,
				ImageEndIndex:   i + 1,
			})
			start, count = i+1, 0
		}
	}

	switch {
	case count > 0:
		batches = append(batches, pipeline.BatchEntry{
			BatchIndex:      len(batches),
			ImageStartIndex: start,
			ImageEndIndex:   len(metadata),
		})
	case start < len(metadata) && len(batches) > 0:
		batches[len(batches)-1].ImageEndIndex = len(metadata)
	}
	return batches
}
