// Package custody is the authenticated HTTP client for the custody
// provider's vault API. One client is bound to exactly one workspace.
package custody

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vaultfolio/vaultfolio/internal/credentials"
	"github.com/vaultfolio/vaultfolio/internal/domain"
	"github.com/vaultfolio/vaultfolio/internal/metrics"
	"github.com/vaultfolio/vaultfolio/internal/signer"
)

const requestTimeout = 15 * time.Second

// Client issues signed requests against one workspace's custody API.
type Client struct {
	creds      credentials.WorkspaceCredentials
	signer     *signer.Signer
	httpClient *http.Client
}

// NewClient creates a custody client for the given workspace credentials.
// A disabled workspace still yields a client; its calls return
// ErrWorkspaceDisabled.
func NewClient(creds credentials.WorkspaceCredentials) *Client {
	return &Client{
		creds:      creds,
		signer:     signer.New(creds),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Workspace returns the workspace this client is bound to.
func (c *Client) Workspace() domain.Workspace { return c.creds.Workspace }

// Enabled reports whether the bound workspace has usable credentials.
func (c *Client) Enabled() bool { return c.creds.Enabled }

// get signs and performs a GET request. Each call mints a fresh token; the
// 55-second expiry forbids reuse. No retry: failures surface to the caller.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if !c.creds.Enabled {
		return nil, ErrWorkspaceDisabled
	}

	token, err := c.signer.Token(path, http.MethodGet, nil)
	if err != nil {
		return nil, fmt.Errorf("signing request: %w", err)
	}

	fullURL := c.creds.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-Key", c.creds.APIKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if (errors.As(err, &uerr) && uerr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			metrics.UpstreamRequests.WithLabelValues("custody", "timeout").Inc()
			return nil, &TimeoutError{URL: fullURL, Err: err}
		}
		metrics.UpstreamRequests.WithLabelValues("custody", "error").Inc()
		return nil, fmt.Errorf("executing request: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("custody", "error").Inc()
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequests.WithLabelValues("custody", "error").Inc()
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	metrics.UpstreamRequests.WithLabelValues("custody", "ok").Inc()
	return body, nil
}

// getJSON performs a signed GET request and unmarshals the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing JSON from %s: %w", path, err)
	}
	return nil
}
