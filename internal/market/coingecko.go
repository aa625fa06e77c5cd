// Package market fetches and caches USD prices from the market-data service.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaultfolio/vaultfolio/internal/metrics"
)

const requestTimeout = 20 * time.Second

// Client fetches prices from the CoinGecko API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new market-data API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// ChartPoint is one sample of a market chart time series.
type ChartPoint struct {
	Timestamp time.Time
	Price     decimal.Decimal
}

// SimplePrices fetches current USD prices for all given market identifiers
// in a single batched call.
func (c *Client) SimplePrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	if len(ids) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")

	body, err := c.get(ctx, "/simple/price?"+q.Encode())
	if err != nil {
		return nil, err
	}

	// Parse: {"bitcoin":{"usd":50000},"ethereum":{"usd":2500},...}
	var raw map[string]map[string]json.Number
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing price response: %w", err)
	}

	result := make(map[string]decimal.Decimal, len(raw))
	for id, prices := range raw {
		usd, ok := prices["usd"]
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(usd.String())
		if err != nil {
			return nil, fmt.Errorf("parsing price for %s: %w", id, err)
		}
		result[id] = d
	}
	return result, nil
}

// DayChart fetches the past-day minute-granularity USD series for one
// market identifier, oldest point first.
func (c *Client) DayChart(ctx context.Context, id string) ([]ChartPoint, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", "1")
	q.Set("interval", "minute")

	body, err := c.get(ctx, fmt.Sprintf("/coins/%s/market_chart?%s", url.PathEscape(id), q.Encode()))
	if err != nil {
		return nil, err
	}

	// Parse: {"prices":[[timestampMs, price], ...]}
	var raw struct {
		Prices [][2]json.Number `json:"prices"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing market chart for %s: %w", id, err)
	}

	points := make([]ChartPoint, 0, len(raw.Prices))
	for _, pair := range raw.Prices {
		ms, err := pair[0].Int64()
		if err != nil {
			return nil, fmt.Errorf("parsing chart timestamp for %s: %w", id, err)
		}
		price, err := decimal.NewFromString(pair[1].String())
		if err != nil {
			return nil, fmt.Errorf("parsing chart price for %s: %w", id, err)
		}
		points = append(points, ChartPoint{
			Timestamp: time.UnixMilli(ms).UTC(),
			Price:     price,
		})
	}
	return points, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating market-data request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome := "error"
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			outcome = "timeout"
		}
		metrics.UpstreamRequests.WithLabelValues("market", outcome).Inc()
		return nil, fmt.Errorf("market-data request failed: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("market", "error").Inc()
		return nil, fmt.Errorf("reading market-data response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequests.WithLabelValues("market", "error").Inc()
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	metrics.UpstreamRequests.WithLabelValues("market", "ok").Inc()
	return body, nil
}

// UpstreamError is a non-200 response from the market-data service.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("market-data API HTTP %d: %s", e.Status, e.Body)
}
