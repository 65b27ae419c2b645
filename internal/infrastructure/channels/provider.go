package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/highprosper/backend/internal/infrastructure/config"
)

// providerClient wraps the outbound HTTP calls every channel adapter makes.
// One request, one timeout; retry policy lives in the escalation sweep, not
// here.
type providerClient struct {
	http *http.Client
}

func newProviderClient(timeout time.Duration) *providerClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &providerClient{http: &http.Client{Timeout: timeout}}
}

// postJSON sends a JSON body to provider.BaseURL+path with bearer auth and
// any extra headers. Returns the status code and response body.
func (c *providerClient) postJSON(ctx context.Context, provider config.ProviderConfig, path string, body any, headers map[string]string) (int, []byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("encoding %s request: %w", provider.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, fmt.Errorf("building %s request: %w", provider.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if provider.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+provider.APIKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("calling %s: %w", provider.Name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading %s response: %w", provider.Name, err)
	}
	return resp.StatusCode, respBody, nil
}

// getJSON reads provider.BaseURL+path and decodes the JSON response into out
func (c *providerClient) getJSON(ctx context.Context, provider config.ProviderConfig, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.BaseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("building %s request: %w", provider.Name, err)
	}
	if provider.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+provider.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling %s: %w", provider.Name, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding %s response: %w", provider.Name, err)
		}
	}
	return resp.StatusCode, nil
}

// classify maps an HTTP status to a delivery result. 202 means the provider
// queued the message, which counts as success for escalation purposes.
func classify(status int) (ok bool, deferred bool) {
	if status == http.StatusAccepted {
		return true, true
	}
	return status >= 200 && status < 300, false
}
