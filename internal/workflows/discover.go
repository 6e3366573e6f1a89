package workflows

import (
	"fmt"
	"strings"

	"github.com/tendant/simple-alt-pipeline/internal/contentstack"
	"github.com/tendant/simple-alt-pipeline/internal/logging"
	"github.com/tendant/simple-alt-pipeline/internal/storage"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// DefaultMaxAssets caps how many assets discovery lists per locale
const DefaultMaxAssets = 5000

// DiscoverWorkflow lists the stack's images that have no description
type DiscoverWorkflow struct {
	assets    AssetSource
	store     *storage.FilesystemStorage
	maxAssets int
}

// NewDiscoverWorkflow creates the discovery workflow. maxAssets <= 0 uses DefaultMaxAssets.
func NewDiscoverWorkflow(assets AssetSource, store *storage.FilesystemStorage, maxAssets int) *DiscoverWorkflow {
	if maxAssets <= 0 {
		maxAssets = DefaultMaxAssets
	}
	return &DiscoverWorkflow{assets: assets, store: store, maxAssets: maxAssets}
}

// Name returns the workflow name
func (w *DiscoverWorkflow) Name() string {
	return "DiscoverWorkflow"
}

// Execute runs discovery and writes languages.json and images.json
func (w *DiscoverWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	logger := logging.ForRun(wctx.RunID)
	ctx := wctx.Ctx

	session, err := openSession(w.store, wctx.Request)
	if err != nil {
		return failed("discover", err)
	}

	all, err := w.assets.GetLocales(ctx)
	if err != nil {
		return failed("list locales", err)
	}
	locales, err := selectLocales(all, wctx.Request.Locales)
	if err != nil {
		return failed("select locales", err)
	}
	if err := storage.WriteJSON(ctx, session, pipeline.ArtifactLanguages, locales); err != nil {
		return failed("write languages", err)
	}

	var images []pipeline.Image
	perLocale := make(map[string]interface{}, len(locales))
	for _, locale := range locales {
		found, scanned, err := w.discoverLocale(wctx, locale)
		if err != nil {
			return failed("list assets for "+locale.Code, err)
		}
		logger.Info().
			Str("locale", locale.Code).
			Int("scanned", scanned).
			Int("without_description", len(found)).
			Msg("Discovered images")
		perLocale[locale.Code] = len(found)
		images = append(images, found...)
	}
	if images == nil {
		images = []pipeline.Image{}
	}

	if err := storage.WriteJSON(ctx, session, pipeline.ArtifactImages, images); err != nil {
		return failed("write images", err)
	}

	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"session":    wctx.Request.Session,
			"locales":    len(locales),
			"images":     len(images),
			"per_locale": perLocale,
			"artifact":   pipeline.ArtifactImages,
		},
	}, nil
}

// discoverLocale pages through one locale's assets
func (w *DiscoverWorkflow) discoverLocale(wctx *WorkflowContext, locale pipeline.Locale) ([]pipeline.Image, int, error) {
	allowed := mimeFilter(wctx.Request.ContentTypes)

	var images []pipeline.Image
	scanned := 0
	for skip := 0; skip < w.maxAssets; skip += contentstack.PageSize {
		page, err := w.assets.ListAssets(wctx.Ctx, locale.Code, skip, contentstack.PageSize)
		if err != nil {
			return nil, scanned, err
		}

		for i := range page.Assets {
			asset := &page.Assets[i]
			if scanned >= w.maxAssets {
				break
			}
			scanned++
			if !allowed(asset.ContentType) || !contentstack.IsBlank(asset.Description) {
				continue
			}
			images = append(images, asset.ToImage(locale))
		}

		if len(page.Assets) < contentstack.PageSize || (page.Count > 0 && skip+len(page.Assets) >= page.Count) {
			break
		}
	}
	return images, scanned, nil
}

// selectLocales keeps the requested locale codes, or all when none are requested
func selectLocales(all []pipeline.Locale, requested []string) ([]pipeline.Locale, error) {
	if len(requested) == 0 {
		return all, nil
	}

	byCode := make(map[string]pipeline.Locale, len(all))
	for _, l := range all {
		byCode[strings.ToLower(l.Code)] = l
	}

	selected := make([]pipeline.Locale, 0, len(requested))
	for _, code := range requested {
		l, ok := byCode[strings.ToLower(strings.TrimSpace(code))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown locale %q", ErrInvalidRequest, code)
		}
		selected = append(selected, l)
	}
	return selected, nil
}

// mimeFilter matches the selected MIME types, or any image type when none are selected
func mimeFilter(selected []string) func(string) bool {
	if len(selected) == 0 {
		return func(mime string) bool {
			return strings.HasPrefix(mime, "image/")
		}
	}
	set := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return func(mime string) bool {
		_, ok := set[strings.ToLower(mime)]
		return ok
	}
}
