package usage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

func TestTitleCache_MemoizesFailure(t *testing.T) {
	var calls int
	cache := NewTitleCache("content_type", func(ctx context.Context, uid string) (pipeline.TypeInfo, error) {
		calls++
		if calls == 1 {
			return pipeline.TypeInfo{}, errNetwork
		}
		return pipeline.TypeInfo{UID: uid, Title: "Blog Post"}, nil
	})

	for i := 0; i < 5; i++ {
		assert.Equal(t, "blog_post", cache.Title(context.Background(), "blog_post"))
	}
	assert.Equal(t, 1, calls)
}

func TestTitleCache_CancelledFetchNotCached(t *testing.T) {
	var calls int
	cache := NewTitleCache("content_type", func(ctx context.Context, uid string) (pipeline.TypeInfo, error) {
		calls++
		if err := ctx.Err(); err != nil {
			return pipeline.TypeInfo{}, err
		}
		return pipeline.TypeInfo{UID: uid, Title: "Blog Post"}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, "blog_post", cache.Title(ctx, "blog_post"))
	assert.Zero(t, cache.Len())

	assert.Equal(t, "Blog Post", cache.Title(context.Background(), "blog_post"))
	assert.Equal(t, 2, calls)
}

func TestTitleCache_MemoizesSuccess(t *testing.T) {
	var calls int
	cache := NewTitleCache("component", func(ctx context.Context, uid string) (pipeline.TypeInfo, error) {
		calls++
		return pipeline.TypeInfo{UID: uid, Title: "Hero Component"}, nil
	})

	assert.Equal(t, "Hero Component", cache.Title(context.Background(), "cpt_hero"))
	assert.Equal(t, "Hero Component", cache.Title(context.Background(), "cpt_hero"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cache.Len())

	title, ok := cache.Lookup("cpt_hero")
	assert.True(t, ok)
	assert.Equal(t, "Hero Component", title)
}

func TestTitleCache_EmptyTitleFallsBackToUID(t *testing.T) {
	cache := NewTitleCache("component", func(ctx context.Context, uid string) (pipeline.TypeInfo, error) {
		return pipeline.TypeInfo{UID: uid}, nil
	})
	assert.Equal(t, "cpt_x", cache.Title(context.Background(), "cpt_x"))
}

func TestTitleCache_ConcurrentMissesShareOneFetch(t *testing.T) {
	var calls atomic.Int32
	cache := NewTitleCache("component", func(ctx context.Context, uid string) (pipeline.TypeInfo, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return pipeline.TypeInfo{UID: uid, Title: "Shared"}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "Shared", cache.Title(context.Background(), "cpt_shared"))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestTitleCache_SeedNeverReplaces(t *testing.T) {
	cache := NewTitleCache("content_type", func(ctx context.Context, uid string) (pipeline.TypeInfo, error) {
		t.Fatalf("unexpected fetch for %s", uid)
		return pipeline.TypeInfo{}, nil
	})

	cache.Seed("page", "Page")
	cache.Seed("page", "Other")

	assert.Equal(t, "Page", cache.Title(context.Background(), "page"))
	assert.Equal(t, "Page", cache.TitleOrUID("page"))
	assert.Equal(t, "missing", cache.TitleOrUID("missing"))
}

func TestNewCaches_UseSeparateEndpoints(t *testing.T) {
	cms := newFakeCMS()
	cms.contentTypes["same_uid"] = "As Content Type"
	cms.components["same_uid"] = "As Component"

	caches := NewCaches(cms)
	assert.Equal(t, "As Content Type", caches.ContentTypes.Title(context.Background(), "same_uid"))
	assert.Equal(t, "As Component", caches.Components.Title(context.Background(), "same_uid"))
}
