package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tendant/simple-alt-pipeline/internal/throttle"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// DefaultRequestDelay spaces entry fetches for one asset.
const DefaultRequestDelay = 200 * time.Millisecond

// Resolution is everything found for one asset.
type Resolution struct {
	Locations []Location

	References    int // raw reference records returned by the CMS
	Skipped       int // records missing a content type or entry uid
	Duplicates    int
	FailedEntries int
	Truncated     int // entries whose walk hit the depth bound
}

// Anomalous reports an asset that is referenced but was found in no field.
func (r *Resolution) Anomalous() bool {
	return r.References > 0 && len(r.Locations) == 0
}

// Resolver turns an asset uid into the locations that reference it.
type Resolver struct {
	cms      CMS
	throttle throttle.Throttle
	maxDepth int
}

// NewResolver creates a resolver. A nil throttle waits DefaultRequestDelay and
// a non-positive maxDepth uses DefaultMaxDepth.
func NewResolver(cms CMS, th throttle.Throttle, maxDepth int) *Resolver {
	if th == nil {
		th = throttle.NewFixed(DefaultRequestDelay)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{cms: cms, throttle: th, maxDepth: maxDepth}
}

// FindUsages fetches the references of assetUID, then every distinct
// referencing entry, and walks each one. Lookup and fetch failures degrade to
// fewer locations; only fatal client errors and cancellation are returned.
func (r *Resolver) FindUsages(ctx context.Context, assetUID, locale string) (*Resolution, error) {
	res := &Resolution{}
	logger := log.With().Str("asset_uid", assetUID).Logger()

	refs, err := r.cms.GetReferences(ctx, assetUID)
	if err != nil {
		if IsFatal(err) || ctx.Err() != nil {
			return nil, fmt.Errorf("failed to get references for asset %s: %w", assetUID, err)
		}
		logger.Warn().Err(err).Msg("Reference lookup failed, treating asset as unreferenced")
		return res, nil
	}
	res.References = len(refs)

	unique, skipped := Dedupe(refs, locale)
	res.Skipped = skipped
	res.Duplicates = len(refs) - skipped - len(unique)
	if skipped > 0 {
		logger.Debug().Int("skipped", skipped).Msg("Dropped references without content type or entry uid")
	}

	for i, ref := range unique {
		if i > 0 {
			if err := r.throttle.Wait(ctx); err != nil {
				return nil, err
			}
		}

		entry, err := r.cms.FetchEntry(ctx, ref.ContentTypeUID, ref.EntryUID, ref.Locale)
		if err != nil {
			if IsFatal(err) || ctx.Err() != nil {
				return nil, fmt.Errorf("failed to fetch entry %s/%s: %w", ref.ContentTypeUID, ref.EntryUID, err)
			}
			logger.Warn().Err(err).
				Str("content_type", ref.ContentTypeUID).
				Str("entry_uid", ref.EntryUID).
				Str("locale", ref.Locale).
				Msg("Entry fetch failed, skipping reference")
			res.FailedEntries++
			continue
		}

		found, truncated := WalkLimited(assetUID, entry, r.maxDepth)
		if truncated {
			res.Truncated++
			logger.Warn().
				Str("content_type", ref.ContentTypeUID).
				Str("entry_uid", ref.EntryUID).
				Int("max_depth", r.maxDepth).
				Msg("Entry nesting exceeds depth bound, deeper fields were not searched")
		}
		if len(found) == 0 {
			logger.Debug().Str("entry_uid", ref.EntryUID).Msg("Asset not found in entry fields")
		}

		for _, loc := range found {
			loc.ContentTypeUID = ref.ContentTypeUID
			loc.EntryUID = ref.EntryUID
			loc.Locale = ref.Locale
			res.Locations = append(res.Locations, loc)
		}
	}

	return res, nil
}

// Dedupe drops records without a content type or entry uid, fills in missing
// locales (fallbackLocale, then pipeline.DefaultLocale) and collapses repeats
// of the same content type, entry and locale. Order of first appearance is kept.
func Dedupe(refs []pipeline.Reference, fallbackLocale string) (unique []pipeline.Reference, skipped int) {
	if fallbackLocale == "" {
		fallbackLocale = pipeline.DefaultLocale
	}

	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if ref.ContentTypeUID == "" || ref.EntryUID == "" {
			skipped++
			continue
		}
		if ref.Locale == "" {
			ref.Locale = fallbackLocale
		}
		key := ref.ContentTypeUID + ":" + ref.EntryUID + ":" + ref.Locale
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, ref)
	}
	return unique, skipped
}
