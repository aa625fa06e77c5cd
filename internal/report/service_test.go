package report

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vaultfolio/vaultfolio/internal/custody"
	"github.com/vaultfolio/vaultfolio/internal/domain"
)

type fakeCustody struct {
	workspace domain.Workspace
	enabled   bool
	accounts  map[string]custody.VaultAccount
	errs      map[string]error
}

func (f *fakeCustody) Workspace() domain.Workspace { return f.workspace }
func (f *fakeCustody) Enabled() bool               { return f.enabled }

func (f *fakeCustody) GetVaultAccount(_ context.Context, accountID string) (custody.VaultAccount, error) {
	if err, ok := f.errs[accountID]; ok {
		return custody.VaultAccount{}, err
	}
	account, ok := f.accounts[accountID]
	if !ok {
		return custody.VaultAccount{}, &custody.UpstreamError{Status: 404, Body: "not found"}
	}
	return account, nil
}

type fakePrices struct {
	current      map[string]decimal.Decimal
	dayAgo       map[string]decimal.Decimal
	currentCalls int
	currentErr   error
}

func (f *fakePrices) CurrentPrices(_ context.Context, ids []string) (map[string]decimal.Decimal, error) {
	f.currentCalls++
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	out := make(map[string]decimal.Decimal)
	for _, id := range ids {
		if p, ok := f.current[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakePrices) PriceDayAgo(_ context.Context, id string) (decimal.Decimal, error) {
	p, ok := f.dayAgo[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("no day-ago price for %s", id)
	}
	return p, nil
}

type fakeOverrides struct {
	table map[string]string
	err   error
}

func (f *fakeOverrides) Overrides(context.Context) (map[string]string, error) {
	return f.table, f.err
}

func usd(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(clients map[domain.Workspace]CustodyClient, prices PriceService, overrides OverrideSource) *Service {
	return NewService(clients, prices, overrides, 4)
}

func primaryWith(accounts map[string]custody.VaultAccount) map[domain.Workspace]CustodyClient {
	return map[domain.Workspace]CustodyClient{
		domain.WorkspacePrimary: &fakeCustody{
			workspace: domain.WorkspacePrimary,
			enabled:   true,
			accounts:  accounts,
		},
	}
}

func TestBuildSingleHoldingScenario(t *testing.T) {
	clients := primaryWith(map[string]custody.VaultAccount{
		"1": {ID: "1", Assets: []custody.VaultAsset{{ID: "BTC", Total: "1.00000000"}}},
	})
	prices := &fakePrices{
		current: map[string]decimal.Decimal{"bitcoin": usd("50000")},
		dayAgo:  map[string]decimal.Decimal{"bitcoin": usd("49000")},
	}

	svc := newTestService(clients, prices, &fakeOverrides{})
	rep, err := svc.Build(context.Background(), []domain.IdentityLink{
		{Workspace: domain.WorkspacePrimary, VaultAccountID: "1"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(rep.Lines) != 1 {
		t.Fatalf("lines = %+v", rep.Lines)
	}
	line := rep.Lines[0]
	if line.Symbol != "BTC" || line.MarketID != "bitcoin" {
		t.Errorf("line identity = %s/%s", line.Symbol, line.MarketID)
	}
	if !line.Value.Equal(usd("50000")) {
		t.Errorf("value = %s, want 50000", line.Value)
	}
	if !line.PnlAbsolute.Equal(usd("1000")) {
		t.Errorf("pnlAbsolute = %s, want 1000", line.PnlAbsolute)
	}
	if got := line.PnlPercent.Round(2); !got.Equal(usd("2.04")) {
		t.Errorf("pnlPercent = %s, want 2.04", got)
	}
	if !rep.TotalValue.Equal(usd("50000")) || !rep.TotalPnlAbsolute.Equal(usd("1000")) {
		t.Errorf("totals = %s / %s", rep.TotalValue, rep.TotalPnlAbsolute)
	}
}

func TestBuildAggregatesAcrossAccounts(t *testing.T) {
	clients := primaryWith(map[string]custody.VaultAccount{
		"1": {ID: "1", Assets: []custody.VaultAsset{{ID: "BTC", Total: "0.5"}}},
		"2": {ID: "2", Assets: []custody.VaultAsset{{ID: "BTC", Total: "0.25"}}},
	})
	prices := &fakePrices{
		current: map[string]decimal.Decimal{"bitcoin": usd("40000")},
		dayAgo:  map[string]decimal.Decimal{"bitcoin": usd("40000")},
	}

	svc := newTestService(clients, prices, &fakeOverrides{})
	rep, err := svc.Build(context.Background(), []domain.IdentityLink{
		{Workspace: domain.WorkspacePrimary, VaultAccountID: "1"},
		{Workspace: domain.WorkspacePrimary, VaultAccountID: "2"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(rep.Lines) != 1 {
		t.Fatalf("lines = %+v", rep.Lines)
	}
	if !rep.Lines[0].Quantity.Equal(usd("0.75")) {
		t.Errorf("quantity = %s, want 0.75", rep.Lines[0].Quantity)
	}
}

func TestBuildDisabledWorkspaceYieldsPartialReport(t *testing.T) {
	clients := map[domain.Workspace]CustodyClient{
		domain.WorkspacePrimary: &fakeCustody{
			workspace: domain.WorkspacePrimary,
			enabled:   true,
			accounts: map[string]custody.VaultAccount{
				"1": {ID: "1", Assets: []custody.VaultAsset{{ID: "ETH", Total: "2"}}},
			},
		},
		domain.WorkspaceSecondary: &fakeCustody{
			workspace: domain.WorkspaceSecondary,
			enabled:   false,
		},
	}
	prices := &fakePrices{
		current: map[string]decimal.Decimal{"ethereum": usd("2500")},
		dayAgo:  map[string]decimal.Decimal{"ethereum": usd("2400")},
	}

	svc := newTestService(clients, prices, &fakeOverrides{})
	rep, err := svc.Build(context.Background(), []domain.IdentityLink{
		{Workspace: domain.WorkspacePrimary, VaultAccountID: "1"},
		{Workspace: domain.WorkspaceSecondary, VaultAccountID: "7"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(rep.Lines) != 1 || rep.Lines[0].Symbol != "ETH" {
		t.Fatalf("lines = %+v, want primary holdings only", rep.Lines)
	}
	if len(rep.WorkspaceErrors) != 0 {
		t.Errorf("workspace errors = %+v, disabled is not an error", rep.WorkspaceErrors)
	}

	found := false
	for _, sk := range rep.Skipped {
		if sk.Reason == domain.SkipReasonWorkspaceDisabled && sk.Workspace == domain.WorkspaceSecondary && sk.VaultAccountID == "7" {
			found = true
		}
	}
	if !found {
		t.Errorf("skipped = %+v, want workspace_disabled entry for secondary/7", rep.Skipped)
	}
}

func TestBuildFetchFailureIsRecordedNotFatal(t *testing.T) {
	clients := map[domain.Workspace]CustodyClient{
		domain.WorkspacePrimary: &fakeCustody{
			workspace: domain.WorkspacePrimary,
			enabled:   true,
			accounts: map[string]custody.VaultAccount{
				"1": {ID: "1", Assets: []custody.VaultAsset{{ID: "BTC", Total: "1"}}},
			},
			errs: map[string]error{
				"2": &custody.UpstreamError{Status: 500, Body: "boom"},
			},
		},
	}
	prices := &fakePrices{
		current: map[string]decimal.Decimal{"bitcoin": usd("50000")},
		dayAgo:  map[string]decimal.Decimal{"bitcoin": usd("50000")},
	}

	svc := newTestService(clients, prices, &fakeOverrides{})
	rep, err := svc.Build(context.Background(), []domain.IdentityLink{
		{Workspace: domain.WorkspacePrimary, VaultAccountID: "1"},
		{Workspace: domain.WorkspacePrimary, VaultAccountID: "2"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(rep.Lines) != 1 {
		t.Fatalf("lines = %+v, want report from surviving account", rep.Lines)
	}
	if len(rep.WorkspaceErrors) != 1 {
		t.Fatalf("workspace errors = %+v", rep.WorkspaceErrors)
	}
	we := rep.WorkspaceErrors[0]
	if we.Workspace != domain.WorkspacePrimary || we.VaultAccountID != "2" {
		t.Errorf("workspace error = %+v", we)
	}
}

func TestBuildUnmappedAssetDropped(t *testing.T) {
	clients := primaryWith(map[string]custody.VaultAccount{
		"1": {ID: "1", Assets: []custody.VaultAsset{
			{ID: "BTC", Total: "1"},
			{ID: "XYZ", Total: "100"},
		}},
	})
	prices := &fakePrices{
		current: map[string]decimal.Decimal{"bitcoin": usd("50000")},
		dayAgo:  map[string]decimal.Decimal{"bitcoin": usd("50000")},
	}

	svc := newTestService(clients, prices, &fakeOverrides{})
	rep, err := svc.Build(context.Background(), []domain.IdentityLink{
		{Workspace: domain.WorkspacePrimary, VaultAccountID: "1"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(rep.Lines) != 1 || rep.Lines[0].Symbol != "BTC" {
		t.Fatalf("lines = %+v", rep.Lines)
	}
	found := false
	for _, sk := range rep.Skipped {
		if sk.Symbol == "XYZ" && sk.Reason == domain.SkipReasonUnmappedAsset {
			found = true
		}
	}
	if !found {
		t.Errorf("skipped = %+v, want unmapped_asset entry for XYZ", rep.Skipped)
	}
}

func TestBuildZeroQuantityExcluded(t *testing.T) {
	clients := primaryWith(map[string]custody.VaultAccount{
		"1": {ID: "1", Assets: []custody.VaultAsset{{ID: "BTC", Total: "1.5"}}},
		"2": {ID: "2", Assets: []custody.VaultAsset{{ID: "BTC", Total: "-1.5"}}},
	})
	prices := &fakePrices{
		current: map[string]decimal.Decimal{"bitcoin": usd("50000")},
		dayAgo:  map[string]decimal.Decimal{"bitcoin": usd("50000")},
	}

	svc := newTestService(clients, prices, &fakeOverrides{})
	rep, err := svc.Build(context.Background(), []domain.IdentityLink{
		{Workspace: domain.WorkspacePrimary, VaultAccountID: "1"},
		{Workspace: domain.WorkspacePrimary, VaultAccountID: "2"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(rep.Lines) != 0 {
		t.Errorf("lines = %+v, want none", rep.Lines)
	}
	if !rep.TotalValue.IsZero() || !rep.TotalPnlAbsolute.IsZero() {
		t.Errorf("totals = %s / %s, want zero", rep.TotalValue, rep.TotalPnlAbsolute)
	}
	if len(rep.Skipped) != 1 || rep.Skipped[0].Reason != domain.SkipReasonZeroQuantity {
		t.Errorf("skipped = %+v, want zero_quantity for BTC", rep.Skipped)
	}
	if prices.currentCalls != 0 {
		t.Errorf("price calls = %d, nothing to value", prices.currentCalls)
	}
}

func TestBuildZeroDayAgoPrice(t *testing.T) {
	clients := primaryWith(map[string]custody.VaultAccount{
		"1": {ID: "1", Assets: []custody.VaultAsset{{ID: "BTC", Total: "2"}}},
	})
	prices := &fakePrices{
		current: map[string]decimal.Decimal{"bitcoin": usd("50000")},
		dayAgo:  map[string]decimal.Decimal{"bitcoin": decimal.Zero},
	}

	svc := newTestService(clients, prices, &fakeOverrides{})
	rep, err := svc.Build(context.Background(), []domain.IdentityLink{
		{Workspace: domain.WorkspacePrimary, VaultAccountID: "1"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(rep.Lines) != 1 {
		t.Fatalf("lines = %+v", rep.Lines)
	}
	if !rep.Lines[0].PnlPercent.IsZero() {
		t.Errorf("pnlPercent = %s, want 0 when day-ago price is 0", rep.Lines[0].PnlPercent)
	}
}

func TestBuildBatchesCurrentPriceLookup(t *testing.T) {
	clients := primaryWith(map[string]custody.VaultAccount{
		"1": {ID: "1", Assets: []custody.VaultAsset{
			{ID: "BTC", Total: "1"},
			{ID: "ETH", Total: "10"},
			{ID: "SOL", Total: "100"},
		}},
	})
	prices := &fakePrices{
		current: map[string]decimal.Decimal{
			"bitcoin":  usd("50000"),
			"ethereum": usd("2500"),
			"solana":   usd("150"),
		},
		dayAgo: map[string]decimal.Decimal{
			"bitcoin":  usd("50000"),
			"ethereum": usd("2500"),
			"solana":   usd("150"),
		},
	}

	svc := newTestService(clients, prices, &fakeOverrides{})
	rep, err := svc.Build(context.Background(), []domain.IdentityLink{
		{Workspace: domain.WorkspacePrimary, VaultAccountID: "1"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if prices.currentCalls != 1 {
		t.Errorf("current price calls = %d, want one batched call", prices.currentCalls)
	}
	if len(rep.Lines) != 3 {
		t.Errorf("lines = %+v", rep.Lines)
	}
	// Lines come out ordered by symbol.
	for i, want := range []string{"BTC", "ETH", "SOL"} {
		if rep.Lines[i].Symbol != want {
			t.Errorf("lines[%d] = %s, want %s", i, rep.Lines[i].Symbol, want)
		}
	}
}

func TestBuildOverrideTableWins(t *testing.T) {
	clients := primaryWith(map[string]custody.VaultAccount{
		"1": {ID: "1", Assets: []custody.VaultAsset{{ID: "WBTC", Total: "1"}}},
	})
	prices := &fakePrices{
		current: map[string]decimal.Decimal{"wrapped-bitcoin": usd("49900")},
		dayAgo:  map[string]decimal.Decimal{"wrapped-bitcoin": usd("49000")},
	}

	svc := newTestService(clients, prices, &fakeOverrides{
		table: map[string]string{"WBTC": "wrapped-bitcoin"},
	})
	rep, err := svc.Build(context.Background(), []domain.IdentityLink{
		{Workspace: domain.WorkspacePrimary, VaultAccountID: "1"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(rep.Lines) != 1 || rep.Lines[0].MarketID != "wrapped-bitcoin" {
		t.Fatalf("lines = %+v, want override market id", rep.Lines)
	}
}

func TestBuildCurrentPriceFailureAborts(t *testing.T) {
	clients := primaryWith(map[string]custody.VaultAccount{
		"1": {ID: "1", Assets: []custody.VaultAsset{{ID: "BTC", Total: "1"}}},
	})
	prices := &fakePrices{currentErr: errors.New("market data down")}

	svc := newTestService(clients, prices, &fakeOverrides{})
	_, err := svc.Build(context.Background(), []domain.IdentityLink{
		{Workspace: domain.WorkspacePrimary, VaultAccountID: "1"},
	})
	if err == nil {
		t.Fatal("expected error when current prices cannot be fetched")
	}
}

func TestBuildMissingPriceForIDSkipsLine(t *testing.T) {
	clients := primaryWith(map[string]custody.VaultAccount{
		"1": {ID: "1", Assets: []custody.VaultAsset{
			{ID: "BTC", Total: "1"},
			{ID: "ETH", Total: "1"},
		}},
	})
	prices := &fakePrices{
		current: map[string]decimal.Decimal{"bitcoin": usd("50000")},
		dayAgo:  map[string]decimal.Decimal{"bitcoin": usd("50000")},
	}

	svc := newTestService(clients, prices, &fakeOverrides{})
	rep, err := svc.Build(context.Background(), []domain.IdentityLink{
		{Workspace: domain.WorkspacePrimary, VaultAccountID: "1"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(rep.Lines) != 1 || rep.Lines[0].Symbol != "BTC" {
		t.Fatalf("lines = %+v", rep.Lines)
	}
	found := false
	for _, sk := range rep.Skipped {
		if sk.Symbol == "ETH" && sk.Reason == domain.SkipReasonFetchFailed {
			found = true
		}
	}
	if !found {
		t.Errorf("skipped = %+v, want fetch_failed for ETH", rep.Skipped)
	}
}
