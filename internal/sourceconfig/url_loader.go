package sourceconfig

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// URLLoader is the concrete JsonLoader that fetches the release-config file
// over HTTP(S), retrying transient failures the same way
// internal/download.Downloader retries asset fetches.
type URLLoader struct {
	client *retryablehttp.Client
}

// NewURLLoader constructs a URLLoader with a quiet retryablehttp client
// (its default logger is noisy enough to drown out this process's own
// structured logs).
func NewURLLoader() *URLLoader {
	client := retryablehttp.NewClient()
	client.Logger = nil
	return &URLLoader{client: client}
}

// Load fetches url and returns its body. A non-2xx response is treated as a
// permanent failure, not retried further.
func (l *URLLoader) Load(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("sourceconfig: build request for %s: %w", url, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sourceconfig: fetch %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("sourceconfig: fetch %s: unexpected status %s", url, resp.Status)
	}

	return resp.Body, nil
}
