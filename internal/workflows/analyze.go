package workflows

import (
	"github.com/tendant/simple-alt-pipeline/internal/logging"
	"github.com/tendant/simple-alt-pipeline/internal/storage"
	"github.com/tendant/simple-alt-pipeline/internal/usage"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// AnalyzeWorkflow attaches usages to discovered images and selects the ones
// whose usage keys were chosen
type AnalyzeWorkflow struct {
	analyzer *usage.Analyzer
	store    *storage.FilesystemStorage
}

// NewAnalyzeWorkflow creates the usage analysis workflow
func NewAnalyzeWorkflow(analyzer *usage.Analyzer, store *storage.FilesystemStorage) *AnalyzeWorkflow {
	return &AnalyzeWorkflow{analyzer: analyzer, store: store}
}

// Name returns the workflow name
func (w *AnalyzeWorkflow) Name() string {
	return "AnalyzeUsagesWorkflow"
}

// Execute reads images.json, analyzes usages and writes filtered-images.json
func (w *AnalyzeWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	logger := logging.ForRun(wctx.RunID)
	ctx := wctx.Ctx
	req := wctx.Request

	session, err := openSession(w.store, req)
	if err != nil {
		return failed("analyze usages", err)
	}

	var images []pipeline.Image
	if err := storage.ReadJSON(ctx, session, pipeline.ArtifactImages, &images); err != nil {
		return failed("load images", err)
	}

	active := make([]pipeline.Image, 0, len(images))
	ignored := 0
	for _, img := range images {
		if img.Status == pipeline.StatusIgnored {
			ignored++
			continue
		}
		active = append(active, img)
	}

	report, err := w.analyzer.AnalyzeImages(ctx, active)
	if err != nil {
		return failed("analyze usages", err)
	}

	keys := req.Keys
	if len(keys) == 0 {
		keys = usage.Keys(report.KeyGroups)
	}
	selected := usage.FilterByKeys(active, keys, req.IncludeUnused)

	if err := storage.WriteJSON(ctx, session, pipeline.ArtifactImages, mergeAnalyzed(images, active)); err != nil {
		return failed("write images", err)
	}

	filtered := pipeline.FilteredImages{
		TotalImages:    len(images),
		FilteredImages: len(selected),
		SelectedKeys:   keys,
		KeyGroups:      report.KeyGroups,
		Summary:        report.Summary,
		Images:         selected,
	}
	if err := storage.WriteJSON(ctx, session, pipeline.ArtifactFilteredImages, filtered); err != nil {
		return failed("write filtered images", err)
	}

	logger.Info().
		Int("total", len(images)).
		Int("ignored", ignored).
		Int("selected", len(selected)).
		Int("keys", len(keys)).
		Msg("Selected images for ALT generation")

	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"session":              req.Session,
			"images":               len(images),
			"ignored":              ignored,
			"filtered_images":      len(selected),
			"selected_keys":        len(keys),
			"usages_found":         report.Summary.UsagesFound,
			"images_without_usage": report.Summary.ImagesWithoutUsage,
			"anomalies":            report.Summary.Anomalies,
			"artifact":             pipeline.ArtifactFilteredImages,
		},
	}, nil
}

// mergeAnalyzed returns images with the analyzed copies in place of their originals
func mergeAnalyzed(images, analyzed []pipeline.Image) []pipeline.Image {
	type key struct{ uid, locale string }
	byKey := make(map[key]pipeline.Image, len(analyzed))
	for _, img := range analyzed {
		byKey[key{img.UID, img.Locale}] = img
	}

	out := make([]pipeline.Image, len(images))
	for i, img := range images {
		if a, ok := byKey[key{img.UID, img.Locale}]; ok {
			out[i] = a
			continue
		}
		out[i] = img
	}
	return out
}
