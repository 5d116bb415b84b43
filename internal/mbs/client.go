// Package mbs retrieves module build metadata from the Module Build
// Service REST API.
package mbs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrRetrieval wraps any failure to fetch modulemd content. The event
// handler treats it as recoverable: the event is logged and dropped.
var ErrRetrieval = errors.New("modulemd retrieval failed")

// Client is an HTTP client for the MBS module-builds API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates an MBS client for the given API base URL, e.g.
// "https://mbs.example.com/module-build-service/1".
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type moduleBuildsResponse struct {
	Items []struct {
		Modulemd string `json:"modulemd"`
	} `json:"items"`
}

// ModulemdText fetches the raw modulemd YAML for one module build,
// identified by its NSVC fields.
func (c *Client) ModulemdText(ctx context.Context, name, stream, version, mcontext string) ([]byte, error) {
	u, err := url.Parse(c.BaseURL + "/module-builds/")
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base URL: %v", ErrRetrieval, err)
	}

	q := u.Query()
	q.Set("name", name)
	q.Set("stream", stream)
	q.Set("version", version)
	q.Set("context", mcontext)
	q.Set("verbose", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: MBS returned status %d: %s", ErrRetrieval, resp.StatusCode, body)
	}

	var payload moduleBuildsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: invalid MBS response: %v", ErrRetrieval, err)
	}
	if len(payload.Items) == 0 {
		return nil, fmt.Errorf("%w: no module build found for %s-%s-%s-%s",
			ErrRetrieval, name, stream, version, mcontext)
	}
	return []byte(payload.Items[0].Modulemd), nil
}
