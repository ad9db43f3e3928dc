package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultTimeout bounds every device-native HTTP call. Devices live on
// the local network; anything slower than this is effectively offline.
const defaultTimeout = 5 * time.Second

// maxResponseSize caps response bodies. Device reports are tiny.
const maxResponseSize = 1 << 20 // 1MB

// Sentinel errors for HTTP adapter failures, checked with errors.Is().
var (
	// ErrRequestFailed indicates a network-level failure (refused,
	// timeout, DNS).
	ErrRequestFailed = errors.New("transport: request failed")

	// ErrBadStatus indicates the device answered with a non-200 status.
	ErrBadStatus = errors.New("transport: unexpected status")
)

// HTTPAdapter performs GET requests against device-native REST APIs and
// decodes JSON responses. Safe for concurrent use.
type HTTPAdapter struct {
	client *http.Client
}

// NewHTTPAdapter creates an adapter with the given per-request timeout.
// A non-positive timeout falls back to the default.
func NewHTTPAdapter(timeout time.Duration) *HTTPAdapter {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPAdapter{
		client: &http.Client{Timeout: timeout},
	}
}

// GetJSON fetches a URL and decodes the response body as a JSON object.
// An empty body decodes to an empty map, which covers devices that
// acknowledge writes with no content.
func (a *HTTPAdapter) GetJSON(ctx context.Context, url string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d from %s", ErrBadStatus, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrRequestFailed, err)
	}
	if len(body) == 0 {
		return map[string]any{}, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: decoding body from %s: %w", ErrRequestFailed, url, err)
	}
	return doc, nil
}
