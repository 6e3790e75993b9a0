package lightdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// fetchTimeout caps one remote database request.
const fetchTimeout = 30 * time.Second

// HTTPFetcher fetches the lights database over HTTP.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

// NewHTTPFetcher creates a fetcher for the given URL, defaulting to the
// NeewerLite database when empty.
func NewHTTPFetcher(url string) *HTTPFetcher {
	if url == "" {
		url = DefaultRemoteURL
	}
	return &HTTPFetcher{
		URL:    url,
		Client: &http.Client{Timeout: fetchTimeout},
	}
}

// Fetch retrieves and decodes the remote database.
func (f *HTTPFetcher) Fetch(ctx context.Context) (*LightsFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("lightdb: build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lightdb: fetch %s: %w", f.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lightdb: fetch %s: HTTP %d", f.URL, resp.StatusCode)
	}

	var file LightsFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, fmt.Errorf("lightdb: decode database: %w", err)
	}
	return &file, nil
}
