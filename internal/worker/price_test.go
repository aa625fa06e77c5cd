package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type mockWarmer struct {
	callCount atomic.Int32
	lastIDs   atomic.Value
}

func (m *mockWarmer) WarmCurrentPrices(_ context.Context, ids []string) error {
	m.callCount.Add(1)
	m.lastIDs.Store(ids)
	return nil
}

type mockOverrides struct {
	overrides map[string]string
}

func (m *mockOverrides) Overrides(_ context.Context) (map[string]string, error) {
	return m.overrides, nil
}

func TestPriceWorkerRunsAndShutdown(t *testing.T) {
	warmer := &mockWarmer{}
	w := NewPriceWorker(warmer, &mockOverrides{}, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	// Should have run at least the initial refresh + some ticks
	if got := warmer.callCount.Load(); got < 1 {
		t.Errorf("call count = %d, want >= 1", got)
	}
}

func TestPriceWorkerIncludesOverrideTargets(t *testing.T) {
	warmer := &mockWarmer{}
	w := NewPriceWorker(warmer, &mockOverrides{overrides: map[string]string{"WBTC": "wrapped-bitcoin"}}, time.Hour)

	if err := w.refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	ids, _ := warmer.lastIDs.Load().([]string)
	found := false
	for _, id := range ids {
		if id == "wrapped-bitcoin" {
			found = true
		}
	}
	if !found {
		t.Errorf("warmed ids %v missing override target wrapped-bitcoin", ids)
	}
}
