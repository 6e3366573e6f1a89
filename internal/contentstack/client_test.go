package contentstack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-alt-pipeline/internal/usage"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

var _ usage.CMS = (*Client)(nil)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewWithHTTPClient(Config{
		APIKey:          "blt_key",
		ManagementToken: "cs_token",
		BaseURL:         srv.URL + "/",
		Branch:          "main",
	}, srv.Client())
	require.NoError(t, err)
	return c
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = New(Config{ManagementToken: "t"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestClient_SendsStackHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "blt_key", r.Header.Get("api_key"))
		assert.Equal(t, "cs_token", r.Header.Get("authorization"))
		assert.Equal(t, "main", r.Header.Get("branch"))
		assert.Equal(t, "/v3/locales", r.URL.Path)
		io.WriteString(w, `{"locales":[{"code":"en-us","name":"English - United States","uid":"blt1"},{"code":"fr-fr","name":"French"}]}`)
	})

	locales, err := c.GetLocales(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []pipeline.Locale{
		{Code: "en-us", Name: "English - United States", UID: "blt1"},
		{Code: "fr-fr", Name: "French"},
	}, locales)
}

func TestClient_GetReferences_Shapes(t *testing.T) {
	t.Parallel()

	want := []pipeline.Reference{
		{ContentTypeUID: "blog_post", EntryUID: "post_9", Locale: "en-us"},
		{ContentTypeUID: "page", EntryUID: "home"},
	}

	tests := []struct {
		name string
		body string
		want []pipeline.Reference
	}{
		{
			name: "references wrapper",
			body: `{"references":[{"content_type_uid":"blog_post","entry_uid":"post_9","locale":"en-us"},{"content_type_uid":"page","entry_uid":"home"}]}`,
			want: want,
		},
		{
			name: "items wrapper with alternate field names",
			body: `{"items":[{"_content_type_uid":"blog_post","uid":"post_9","locale":"en-us"},{"_content_type_uid":"page","uid":"home"}]}`,
			want: want,
		},
		{
			name: "bare array",
			body: ` [{"content_type_uid":"blog_post","entry_uid":"post_9","locale":"en-us"},{"content_type_uid":"page","entry_uid":"home"}]`,
			want: want,
		},
		{
			name: "incomplete records are kept for the caller to drop",
			body: `{"references":[{"entry_uid":"orphan"}]}`,
			want: []pipeline.Reference{{EntryUID: "orphan"}},
		},
		{
			name: "unknown shape",
			body: `{"count":0}`,
			want: []pipeline.Reference{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v3/assets/img_42/references", r.URL.Path)
				io.WriteString(w, tt.body)
			})
			refs, err := c.GetReferences(context.Background(), "img_42")
			require.NoError(t, err)
			assert.Equal(t, tt.want, refs)
		})
	}
}

func TestClient_FetchEntry_PreservesOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/content_types/blog_post/entries/post_9", r.URL.Path)
		assert.Equal(t, "fr-fr", r.URL.Query().Get("locale"))
		io.WriteString(w, `{"entry":{"uid":"post_9","title":"Bonjour","zeta":"img_42","alpha":"img_42"}}`)
	})

	entry, err := c.FetchEntry(context.Background(), "blog_post", "post_9", "fr-fr")
	require.NoError(t, err)

	found := usage.Walk("img_42", entry)
	require.Len(t, found, 2)
	assert.Equal(t, "zeta", found[0].FieldName)
	assert.Equal(t, "alpha", found[1].FieldName)
}

func TestClient_FetchEntry_MissingEntry(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"notice":"nothing here"}`)
	})

	_, err := c.FetchEntry(context.Background(), "a", "b", "en-us")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestClient_APIErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   int
		fatal    bool
		notFound bool
	}{
		{status: http.StatusUnauthorized, fatal: true},
		{status: http.StatusForbidden, fatal: true},
		{status: http.StatusNotFound, notFound: true},
		{status: http.StatusTooManyRequests},
		{status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, `{"error_message":"nope","error_code":105}`)
			})

			_, err := c.GetReferences(context.Background(), "img_1")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, 105, apiErr.Code)
			assert.Equal(t, "nope", apiErr.Message)
			assert.Equal(t, tt.fatal, usage.IsFatal(err))
			assert.Equal(t, tt.notFound, IsNotFound(err))
		})
	}
}

func TestClient_FetchComponentInfo_FallsBackToGlobalField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/content_types/seo":
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error_message":"Content Type was not found.","error_code":118}`)
		case "/v3/global_fields/seo":
			io.WriteString(w, `{"global_field":{"uid":"seo","title":"SEO"}}`)
		case "/v3/content_types/cpt_hero":
			io.WriteString(w, `{"content_type":{"uid":"cpt_hero","title":"Hero Component","schema":[]}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	info, err := c.FetchComponentInfo(context.Background(), "seo")
	require.NoError(t, err)
	assert.Equal(t, pipeline.TypeInfo{UID: "seo", Title: "SEO"}, info)

	info, err = c.FetchComponentInfo(context.Background(), "cpt_hero")
	require.NoError(t, err)
	assert.Equal(t, "Hero Component", info.Title)
}

func TestClient_ListAssets(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v3/assets", r.URL.Path)
		assert.Equal(t, "en-us", q.Get("locale"))
		assert.Equal(t, "200", q.Get("skip"))
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "true", q.Get("include_count"))
		io.WriteString(w, `{"count":201,"assets":[{"uid":"img_1","url":"https://images/img_1.png","filename":"img_1.png","content_type":"image/png","description":"","tags":["hero",{"uid":"banner"}],"dimension":{"width":800,"height":600}}]}`)
	})

	page, err := c.ListAssets(context.Background(), "en-us", 200, 500)
	require.NoError(t, err)
	assert.Equal(t, 201, page.Count)
	require.Len(t, page.Assets, 1)

	img := page.Assets[0].ToImage(pipeline.Locale{Code: "en-us", Name: "English"})
	assert.Equal(t, "img_1", img.UID)
	assert.Equal(t, []string{"hero", "banner"}, img.Tags)
	assert.Equal(t, 800, img.Width)
	assert.Equal(t, 600, img.Height)
	assert.Equal(t, "English", img.LocaleName)
}

func TestClient_UpdateAssetDescription(t *testing.T) {
	tests := []struct {
		name     string
		tags     string
		wantTags []string
	}{
		{name: "adds tag", tags: `["hero"]`, wantTags: []string{"hero", AIDescriptionTag}},
		{name: "keeps existing tag", tags: `[{"uid":"ai description"}]`, wantTags: []string{AIDescriptionTag}},
		{name: "no tags", tags: `null`, wantTags: []string{AIDescriptionTag}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var updated map[string]struct {
				Description string   `json:"description"`
				Tags        []string `json:"tags"`
			}

			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v3/assets/img_1", r.URL.Path)
				assert.Equal(t, "de-de", r.URL.Query().Get("locale"))
				switch r.Method {
				case http.MethodGet:
					io.WriteString(w, `{"asset":{"uid":"img_1","description":"","tags":`+tt.tags+`}}`)
				case http.MethodPut:
					assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
					assert.NoError(t, json.NewDecoder(r.Body).Decode(&updated))
					io.WriteString(w, `{"notice":"Asset updated successfully."}`)
				}
			})

			require.NoError(t, c.UpdateAssetDescription(context.Background(), "img_1", "de-de", "A red bicycle"))
			assert.Equal(t, "A red bicycle", updated["asset"].Description)
			assert.Equal(t, tt.wantTags, updated["asset"].Tags)
		})
	}
}

func TestEntryTitle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/content_types/blog_post/entries/titled":
			io.WriteString(w, `{"entry":{"uid":"titled","title":"","name":"Named Post"}}`)
		case "/v3/content_types/blog_post/entries/numbered":
			io.WriteString(w, `{"entry":{"entry_title":2024}}`)
		case "/v3/content_types/blog_post/entries/untitled":
			io.WriteString(w, `{"entry":{"body":"x"}}`)
		}
	})

	title, err := c.FetchEntryTitle(context.Background(), "blog_post", "titled", "en-us")
	require.NoError(t, err)
	assert.Equal(t, "Named Post", title)

	title, err = c.FetchEntryTitle(context.Background(), "blog_post", "numbered", "en-us")
	require.NoError(t, err)
	assert.Equal(t, "2024", title)

	title, err = c.FetchEntryTitle(context.Background(), "blog_post", "untitled", "en-us")
	require.NoError(t, err)
	assert.Equal(t, "untitled", title)
}
