// Package worker runs the background price refresh loop.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vaultfolio/vaultfolio/internal/market"
)

// PriceWarmer defines the interface for pre-fetching current prices into the cache.
type PriceWarmer interface {
	WarmCurrentPrices(ctx context.Context, ids []string) error
}

// OverrideSource supplies the operator-configured symbol → market id table.
type OverrideSource interface {
	Overrides(ctx context.Context) (map[string]string, error)
}

// PriceWorker periodically warms the current-price cache for every mapped
// asset, so interactive report requests mostly hit the cache.
type PriceWorker struct {
	prices    PriceWarmer
	overrides OverrideSource
	interval  time.Duration
}

// NewPriceWorker creates a new PriceWorker.
func NewPriceWorker(prices PriceWarmer, overrides OverrideSource, interval time.Duration) *PriceWorker {
	return &PriceWorker{
		prices:    prices,
		overrides: overrides,
		interval:  interval,
	}
}

// refresh warms prices for all known market ids, including override targets.
func (w *PriceWorker) refresh(ctx context.Context) error {
	overrides, err := w.overrides.Overrides(ctx)
	if err != nil {
		slog.Warn("PriceWorker: loading overrides failed, warming defaults only", "error", err)
		overrides = nil
	}
	return w.prices.WarmCurrentPrices(ctx, market.KnownMarketIDs(overrides))
}

// Run starts the price worker loop. It blocks until the context is cancelled.
func (w *PriceWorker) Run(ctx context.Context) {
	slog.Info("PriceWorker: starting", "interval", w.interval)

	// Warm immediately on startup
	if err := w.refresh(ctx); err != nil {
		slog.Error("PriceWorker: initial refresh failed", "error", err)
	} else {
		slog.Info("PriceWorker: initial refresh completed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("PriceWorker: shutting down")
			return
		case <-ticker.C:
			if err := w.refresh(ctx); err != nil {
				slog.Error("PriceWorker: refresh failed", "error", err)
			} else {
				slog.Info("PriceWorker: refresh completed")
			}
		}
	}
}
