package usage

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/tendant/simple-alt-pipeline/internal/metrics"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// FetchInfoFunc loads the metadata of one content type or component.
type FetchInfoFunc func(ctx context.Context, uid string) (pipeline.TypeInfo, error)

// TitleCache memoizes uid -> title for one run. Entries are never replaced, and
// a failed fetch is remembered as the uid itself so it is not retried, unless
// it failed because ctx was done.
type TitleCache struct {
	name  string
	fetch FetchInfoFunc

	mu     sync.RWMutex
	titles map[string]string
	group  singleflight.Group
}

// NewTitleCache creates an empty cache named for logs and metrics.
func NewTitleCache(name string, fetch FetchInfoFunc) *TitleCache {
	return &TitleCache{
		name:   name,
		fetch:  fetch,
		titles: make(map[string]string),
	}
}

// Title returns the cached title for uid, fetching it on first use.
// Concurrent first lookups of one uid share a single fetch.
func (c *TitleCache) Title(ctx context.Context, uid string) string {
	if title, ok := c.Lookup(uid); ok {
		metrics.TitleLookups.WithLabelValues(c.name, "hit").Inc()
		return title
	}

	v, _, _ := c.group.Do(uid, func() (interface{}, error) {
		if title, ok := c.Lookup(uid); ok {
			return title, nil
		}

		title := uid
		info, err := c.fetch(ctx, uid)
		switch {
		case err != nil && ctx.Err() != nil:
			return uid, nil
		case err != nil:
			log.Warn().Err(err).Str("cache", c.name).Str("uid", uid).Msg("Title lookup failed, using uid")
			metrics.TitleLookups.WithLabelValues(c.name, "fallback").Inc()
		case info.Title != "":
			title = info.Title
			metrics.TitleLookups.WithLabelValues(c.name, "fetched").Inc()
		default:
			metrics.TitleLookups.WithLabelValues(c.name, "fallback").Inc()
		}

		return c.store(uid, title), nil
	})
	return v.(string)
}

// Lookup returns a title only if it is already cached.
func (c *TitleCache) Lookup(uid string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	title, ok := c.titles[uid]
	return title, ok
}

// TitleOrUID returns the cached title or uid when absent. It never fetches.
func (c *TitleCache) TitleOrUID(uid string) string {
	if title, ok := c.Lookup(uid); ok {
		return title
	}
	return uid
}

// Seed stores a known title unless uid is already cached.
func (c *TitleCache) Seed(uid, title string) {
	c.store(uid, title)
}

// Len returns the number of cached uids.
func (c *TitleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.titles)
}

func (c *TitleCache) store(uid, title string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.titles[uid]; ok {
		return existing
	}
	c.titles[uid] = title
	return title
}

// Caches holds the two title caches of one run.
type Caches struct {
	ContentTypes *TitleCache
	Components   *TitleCache
}

// NewCaches creates empty caches backed by cms.
func NewCaches(cms CMS) *Caches {
	return &Caches{
		ContentTypes: NewTitleCache("content_type", cms.FetchContentTypeInfo),
		Components:   NewTitleCache("component", cms.FetchComponentInfo),
	}
}
