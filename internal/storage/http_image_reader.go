package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultImageParams ask the image delivery host for a 720px high preview.
var DefaultImageParams = url.Values{
	"height":  []string{"720"},
	"fit":     []string{"scale-down"},
	"quality": []string{"85"},
}

// MaxImageBytes caps a downloaded image
const MaxImageBytes = 20 << 20

// HTTPImageReader fetches asset images from the CMS delivery host
type HTTPImageReader struct {
	params     url.Values
	httpClient *http.Client
}

// NewHTTPImageReader creates a reader that adds params to every image URL.
// A nil params uses DefaultImageParams.
func NewHTTPImageReader(timeout time.Duration, params url.Values) *HTTPImageReader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if params == nil {
		params = DefaultImageParams
	}
	return &HTTPImageReader{
		params:     params,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ImageURL returns rawURL with the reader's parameters merged in
func (ir *HTTPImageReader) ImageURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid image url: %w", err)
	}
	q := u.Query()
	for k, v := range ir.params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch downloads the image and reports its content type
func (ir *HTTPImageReader) Fetch(ctx context.Context, rawURL string) ([]byte, *Metadata, error) {
	rc, meta, err := ir.open(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxImageBytes+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	meta.Size = int64(len(data))
	return data, meta, nil
}

func (ir *HTTPImageReader) open(ctx context.Context, method, rawURL string) (io.ReadCloser, *Metadata, error) {
	u, err := ir.ImageURL(rawURL)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ir.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to download image: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("image %s: %w", rawURL, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return resp.Body, &Metadata{
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
