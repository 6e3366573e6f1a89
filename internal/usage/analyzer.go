package usage

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-alt-pipeline/internal/metrics"
	"github.com/tendant/simple-alt-pipeline/internal/throttle"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// DefaultConcurrency is how many images are analyzed at once.
const DefaultConcurrency = 10

// Options configures an Analyzer.
type Options struct {
	// Throttle spaces entry fetches within one image. Nil waits DefaultRequestDelay.
	Throttle throttle.Throttle

	// MaxDepth bounds the entry walk. Zero uses DefaultMaxDepth.
	MaxDepth int

	// Concurrency is the chunk size for batch analysis. Zero uses DefaultConcurrency.
	Concurrency int
}

// WithDefaults fills in default values for optional fields
func (o *Options) WithDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
}

// Report is the outcome of a batch analysis.
type Report struct {
	KeyGroups []pipeline.KeyGroup
	Summary   pipeline.UsageReport
}

// Analyzer attaches usage summaries to images.
type Analyzer struct {
	cms         CMS
	resolver    *Resolver
	concurrency int
}

// NewAnalyzer creates an analyzer over cms.
func NewAnalyzer(cms CMS, opts Options) *Analyzer {
	opts.WithDefaults()
	return &Analyzer{
		cms:         cms,
		resolver:    NewResolver(cms, opts.Throttle, opts.MaxDepth),
		concurrency: opts.Concurrency,
	}
}

// AnalyzeImageUsage returns the usages of one asset using fresh caches.
func (a *Analyzer) AnalyzeImageUsage(ctx context.Context, assetUID, locale string) ([]pipeline.UsageSummary, error) {
	usages, _, err := a.analyze(ctx, assetUID, locale, NewCaches(a.cms))
	if err != nil {
		return nil, err
	}
	return usages, nil
}

// AnalyzeImages sets Usages and UsageStatus on every image in place, sharing
// title caches across the batch. Images are processed in chunks of the
// configured concurrency. One image failing never affects the others; only
// fatal client errors and cancellation abort the batch.
func (a *Analyzer) AnalyzeImages(ctx context.Context, images []pipeline.Image) (*Report, error) {
	caches := NewCaches(a.cms)

	var (
		mu      sync.Mutex
		summary pipeline.UsageReport
	)

	for start := 0; start < len(images); start += a.concurrency {
		end := min(start+a.concurrency, len(images))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				img := &images[i]
				usages, res, err := a.analyze(gctx, img.UID, img.Locale, caches)
				if err != nil {
					return err
				}

				if usages == nil {
					usages = []pipeline.UsageSummary{}
				}
				img.Usages = usages
				img.UsageStatus = pipeline.UsageUsed
				if len(usages) == 0 {
					img.UsageStatus = pipeline.UsageUnused
				}

				mu.Lock()
				summary.ImagesAnalyzed++
				summary.UsagesFound += len(usages)
				if len(usages) == 0 {
					summary.ImagesWithoutUsage++
				}
				if res.Anomalous() {
					summary.Anomalies++
				}
				summary.SkippedReferences += res.Skipped
				summary.FailedEntries += res.FailedEntries
				summary.TruncatedEntries += res.Truncated
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		log.Info().Int("done", end).Int("total", len(images)).Msg("Analyzed image chunk")
	}

	groups := BuildKeyGroups(images)
	summary.DistinctKeys = len(groups)

	log.Info().
		Int("images", summary.ImagesAnalyzed).
		Int("usages", summary.UsagesFound).
		Int("unused", summary.ImagesWithoutUsage).
		Int("anomalies", summary.Anomalies).
		Int("keys", summary.DistinctKeys).
		Msg("Usage analysis complete")

	return &Report{KeyGroups: groups, Summary: summary}, nil
}

func (a *Analyzer) analyze(ctx context.Context, assetUID, locale string, caches *Caches) ([]pipeline.UsageSummary, *Resolution, error) {
	res, err := a.resolver.FindUsages(ctx, assetUID, locale)
	if err != nil {
		return nil, nil, err
	}

	usages := Summarize(ctx, res.Locations, caches)

	metrics.ImagesAnalyzed.Inc()
	metrics.UsagesFound.Add(float64(len(usages)))
	if res.Anomalous() {
		metrics.UsageAnomalies.Inc()
		log.Warn().
			Str("asset_uid", assetUID).
			Int("references", res.References).
			Int("skipped_references", res.Skipped).
			Int("failed_entries", res.FailedEntries).
			Msg("Asset has references but no usage was found in any entry")
	}

	return usages, res, nil
}

// Summarize resolves titles for each location and builds its usage key.
func Summarize(ctx context.Context, locations []Location, caches *Caches) []pipeline.UsageSummary {
	usages := make([]pipeline.UsageSummary, 0, len(locations))
	for _, loc := range locations {
		ctTitle := caches.ContentTypes.Title(ctx, loc.ContentTypeUID)

		hierarchy := make([]pipeline.ComponentSummary, 0, len(loc.Components))
		for _, c := range loc.Components {
			hierarchy = append(hierarchy, pipeline.ComponentSummary{
				UID:       c.UID,
				Title:     caches.Components.Title(ctx, c.UID),
				FieldName: c.FieldName,
			})
		}

		fieldName := loc.FieldName
		if fieldName == "" {
			fieldName = DefaultFieldName
		}

		usages = append(usages, pipeline.UsageSummary{
			ContentTypeUID:     loc.ContentTypeUID,
			ContentTypeTitle:   ctTitle,
			EntryUID:           loc.EntryUID,
			Locale:             loc.Locale,
			FieldName:          fieldName,
			Key:                BuildKey(loc.Components, ctTitle, fieldName, caches.Components.TitleOrUID),
			ComponentHierarchy: hierarchy,
		})
	}
	return usages
}
