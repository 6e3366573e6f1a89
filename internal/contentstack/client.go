// Package contentstack is a client for the Contentstack content management API.
package contentstack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/simple-alt-pipeline/internal/document"
	"github.com/tendant/simple-alt-pipeline/internal/metrics"
	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

const (
	// DefaultBaseURL is the North America management API host.
	DefaultBaseURL = "https://api.contentstack.io"

	// AIDescriptionTag marks assets whose description was generated.
	AIDescriptionTag = "ai description"

	// PageSize is the largest page the asset listing returns.
	PageSize = 100
)

// Config holds management API credentials and endpoint settings
type Config struct {
	APIKey          string
	ManagementToken string
	BaseURL         string        // defaults to DefaultBaseURL
	Branch          string        // optional
	Timeout         time.Duration // defaults to 30s
}

// Client calls the management API for one stack
type Client struct {
	baseURL    string
	apiKey     string
	token      string
	branch     string
	httpClient *http.Client
}

// New creates a client with its own HTTP client
func New(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return NewWithHTTPClient(cfg, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient creates a client with a custom HTTP client
func NewWithHTTPClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.APIKey == "" || cfg.ManagementToken == "" {
		return nil, ErrMissingCredentials
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		token:      cfg.ManagementToken,
		branch:     cfg.Branch,
		httpClient: httpClient,
	}, nil
}

// GetLocales lists the stack's languages
func (c *Client) GetLocales(ctx context.Context) ([]pipeline.Locale, error) {
	var resp struct {
		Locales []pipeline.Locale `json:"locales"`
	}
	if err := c.getJSON(ctx, "get_locales", "/v3/locales", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Locales, nil
}

// ListAssets returns one page of assets for locale
func (c *Client) ListAssets(ctx context.Context, locale string, skip, limit int) (*AssetPage, error) {
	if limit <= 0 || limit > PageSize {
		limit = PageSize
	}
	query := url.Values{}
	query.Set("locale", locale)
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("include_count", "true")

	var page AssetPage
	if err := c.getJSON(ctx, "list_assets", "/v3/assets", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetAsset fetches one asset in locale
func (c *Client) GetAsset(ctx context.Context, assetUID, locale string) (*Asset, error) {
	var resp struct {
		Asset *Asset `json:"asset"`
	}
	if err := c.getJSON(ctx, "get_asset", "/v3/assets/"+url.PathEscape(assetUID), localeQuery(locale), &resp); err != nil {
		return nil, err
	}
	if resp.Asset == nil {
		return nil, fmt.Errorf("asset %s: %w", assetUID, ErrEmptyResponse)
	}
	return resp.Asset, nil
}

// GetReferences lists the entries that reference an asset
func (c *Client) GetReferences(ctx context.Context, assetUID string) ([]pipeline.Reference, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "get_references", "/v3/assets/"+url.PathEscape(assetUID)+"/references", nil, &raw); err != nil {
		return nil, err
	}
	return parseReferences(raw)
}

// FetchEntry fetches one entry with its field order preserved
func (c *Client) FetchEntry(ctx context.Context, contentTypeUID, entryUID, locale string) (document.Value, error) {
	var resp struct {
		Entry document.Value `json:"entry"`
	}
	path := "/v3/content_types/" + url.PathEscape(contentTypeUID) + "/entries/" + url.PathEscape(entryUID)
	if err := c.getJSON(ctx, "fetch_entry", path, localeQuery(locale), &resp); err != nil {
		return document.Value{}, err
	}
	if resp.Entry.Kind() != document.Object {
		return document.Value{}, fmt.Errorf("entry %s/%s: %w", contentTypeUID, entryUID, ErrEmptyResponse)
	}
	return resp.Entry, nil
}

// FetchEntryTitle returns the entry's display title, or entryUID if it has none
func (c *Client) FetchEntryTitle(ctx context.Context, contentTypeUID, entryUID, locale string) (string, error) {
	entry, err := c.FetchEntry(ctx, contentTypeUID, entryUID, locale)
	if err != nil {
		return entryUID, err
	}
	return EntryTitle(entry, entryUID), nil
}

// EntryTitle picks the first non-empty title-like field of entry.
func EntryTitle(entry document.Value, fallback string) string {
	for _, field := range entryTitleFields {
		v, ok := entry.Get(field)
		if !ok {
			continue
		}
		switch v.Kind() {
		case document.String:
			if s, _ := v.Str(); s != "" {
				return s
			}
		case document.Number:
			n, _ := v.Number()
			return n.String()
		}
	}
	return fallback
}

// FetchContentTypeInfo returns the uid and title of a content type
func (c *Client) FetchContentTypeInfo(ctx context.Context, uid string) (pipeline.TypeInfo, error) {
	var resp struct {
		ContentType *pipeline.TypeInfo `json:"content_type"`
	}
	if err := c.getJSON(ctx, "get_content_type", "/v3/content_types/"+url.PathEscape(uid), nil, &resp); err != nil {
		return pipeline.TypeInfo{}, err
	}
	if resp.ContentType == nil {
		return pipeline.TypeInfo{}, fmt.Errorf("content type %s: %w", uid, ErrEmptyResponse)
	}
	return *resp.ContentType, nil
}

// FetchComponentInfo returns the uid and title of a component. Components are
// modular content types; uids that are not content types are looked up as
// global fields.
func (c *Client) FetchComponentInfo(ctx context.Context, uid string) (pipeline.TypeInfo, error) {
	info, err := c.FetchContentTypeInfo(ctx, uid)
	if err == nil || !IsNotFound(err) {
		return info, err
	}

	var resp struct {
		GlobalField *pipeline.TypeInfo `json:"global_field"`
	}
	if err := c.getJSON(ctx, "get_global_field", "/v3/global_fields/"+url.PathEscape(uid), nil, &resp); err != nil {
		return pipeline.TypeInfo{}, err
	}
	if resp.GlobalField == nil {
		return pipeline.TypeInfo{}, fmt.Errorf("global field %s: %w", uid, ErrEmptyResponse)
	}
	return *resp.GlobalField, nil
}

// UpdateAssetDescription sets an asset's description in locale and tags it
// with AIDescriptionTag unless already tagged
func (c *Client) UpdateAssetDescription(ctx context.Context, assetUID, locale, description string) error {
	asset, err := c.GetAsset(ctx, assetUID, locale)
	if err != nil {
		return err
	}

	tags := append([]string{}, asset.Tags...)
	if !asset.HasTag(AIDescriptionTag) {
		tags = append(tags, AIDescriptionTag)
	}

	body := map[string]interface{}{
		"asset": map[string]interface{}{
			"description": description,
			"tags":        tags,
		},
	}
	return c.doJSON(ctx, "update_asset", http.MethodPut, "/v3/assets/"+url.PathEscape(assetUID), localeQuery(locale), body, nil)
}

func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	return c.doJSON(ctx, op, http.MethodGet, path, query, nil, out)
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) (err error) {
	defer func() {
		metrics.CMSRequests.WithLabelValues(op, metrics.Outcome(err)).Inc()
	}()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api_key", c.apiKey)
	req.Header.Set("authorization", c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.branch != "" {
		req.Header.Set("branch", c.branch)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("contentstack %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

func decodeAPIError(op string, resp *http.Response) error {
	apiErr := &APIError{Op: op, StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		ErrorMessage string `json:"error_message"`
		ErrorCode    int    `json:"error_code"`
	}
	if json.Unmarshal(data, &body) == nil {
		apiErr.Message = body.ErrorMessage
		apiErr.Code = body.ErrorCode
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

func localeQuery(locale string) url.Values {
	if locale == "" {
		return nil
	}
	return url.Values{"locale": []string{locale}}
}
