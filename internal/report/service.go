// Package report builds valued portfolio reports for linked identities.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vaultfolio/vaultfolio/internal/custody"
	"github.com/vaultfolio/vaultfolio/internal/domain"
	"github.com/vaultfolio/vaultfolio/internal/market"
	"github.com/vaultfolio/vaultfolio/internal/metrics"
	"github.com/vaultfolio/vaultfolio/internal/portfolio"
)

// CustodyClient is the per-workspace custody API surface used by reports.
type CustodyClient interface {
	Workspace() domain.Workspace
	Enabled() bool
	GetVaultAccount(ctx context.Context, accountID string) (custody.VaultAccount, error)
}

// PriceService serves current and 24-hours-ago USD prices.
type PriceService interface {
	CurrentPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
	PriceDayAgo(ctx context.Context, id string) (decimal.Decimal, error)
}

// OverrideSource supplies the operator-configured symbol → market id table.
type OverrideSource interface {
	Overrides(ctx context.Context) (map[string]string, error)
}

// Service aggregates vault balances across workspaces and values them.
type Service struct {
	clients          map[domain.Workspace]CustodyClient
	prices           PriceService
	overrides        OverrideSource
	fetchConcurrency int
	now              func() time.Time
}

// NewService creates the report service. fetchConcurrency bounds the number
// of vault account fetches in flight at once.
func NewService(clients map[domain.Workspace]CustodyClient, prices PriceService, overrides OverrideSource, fetchConcurrency int) *Service {
	if fetchConcurrency < 1 {
		fetchConcurrency = 1
	}
	return &Service{
		clients:          clients,
		prices:           prices,
		overrides:        overrides,
		fetchConcurrency: fetchConcurrency,
		now:              time.Now,
	}
}

// Build fetches all vault accounts behind the identity links, aggregates
// their assets and produces a valued report with 24-hour profit/loss.
//
// Partial-result semantics: a disabled workspace or a failed account fetch
// contributes zero records and a diagnostic entry; the report is built from
// whatever succeeded. Only a failed current-price batch aborts the build,
// since nothing can be valued without it.
func (s *Service) Build(ctx context.Context, links []domain.IdentityLink) (domain.PortfolioReport, error) {
	start := s.now()
	rep, err := s.build(ctx, links)
	metrics.ReportDuration.Observe(s.now().Sub(start).Seconds())
	metrics.ReportsTotal.WithLabelValues(reportOutcome(rep, err)).Inc()
	return rep, err
}

func (s *Service) build(ctx context.Context, links []domain.IdentityLink) (domain.PortfolioReport, error) {
	rep := domain.PortfolioReport{
		TotalValue:       decimal.Zero,
		TotalPnlAbsolute: decimal.Zero,
		GeneratedAt:      s.now().UTC(),
	}

	records := s.fetchRecords(ctx, links, &rep)

	totals, zeroed := portfolio.Aggregate(records)
	for _, symbol := range zeroed {
		rep.Skipped = append(rep.Skipped, domain.SkippedAsset{Symbol: symbol, Reason: domain.SkipReasonZeroQuantity})
	}

	holdings := portfolio.Holdings(totals)
	if len(holdings) == 0 {
		sortSkipped(rep.Skipped)
		return rep, nil
	}

	overrides, err := s.overrides.Overrides(ctx)
	if err != nil {
		slog.Warn("loading market id overrides failed, using defaults only", "error", err)
		overrides = nil
	}

	marketIDs := make(map[string]string, len(holdings))
	var priced []domain.Holding
	for _, h := range holdings {
		id, ok := market.ResolveMarketID(h.Symbol, overrides)
		if !ok {
			rep.Skipped = append(rep.Skipped, domain.SkippedAsset{Symbol: h.Symbol, Reason: domain.SkipReasonUnmappedAsset})
			continue
		}
		marketIDs[h.Symbol] = id
		priced = append(priced, h)
	}

	if len(priced) == 0 {
		sortSkipped(rep.Skipped)
		return rep, nil
	}

	ids := make([]string, 0, len(priced))
	for _, h := range priced {
		ids = append(ids, marketIDs[h.Symbol])
	}
	current, err := s.prices.CurrentPrices(ctx, ids)
	if err != nil {
		return domain.PortfolioReport{}, fmt.Errorf("fetching current prices: %w", err)
	}

	for _, h := range priced {
		id := marketIDs[h.Symbol]
		cur, ok := current[id]
		if !ok {
			rep.Skipped = append(rep.Skipped, domain.SkippedAsset{Symbol: h.Symbol, Reason: domain.SkipReasonFetchFailed})
			continue
		}

		dayAgo, err := s.prices.PriceDayAgo(ctx, id)
		if err != nil {
			slog.Warn("24h price unavailable", "symbol", h.Symbol, "marketId", id, "error", err)
			rep.Skipped = append(rep.Skipped, domain.SkippedAsset{Symbol: h.Symbol, Reason: domain.SkipReasonFetchFailed})
			continue
		}

		line := domain.ValuedLine{
			Symbol:       h.Symbol,
			MarketID:     id,
			Quantity:     h.Quantity,
			CurrentPrice: cur,
			Value:        h.Quantity.Mul(cur),
			PnlAbsolute:  h.Quantity.Mul(cur.Sub(dayAgo)),
			PnlPercent:   domain.PercentChange(cur, dayAgo),
		}
		rep.Lines = append(rep.Lines, line)
		rep.TotalValue = rep.TotalValue.Add(line.Value)
		rep.TotalPnlAbsolute = rep.TotalPnlAbsolute.Add(line.PnlAbsolute)
	}

	sortSkipped(rep.Skipped)
	return rep, nil
}

// fetchRecords fans out account fetches with bounded concurrency and collects
// the raw asset records. Failures are recorded per workspace, never fatal.
func (s *Service) fetchRecords(ctx context.Context, links []domain.IdentityLink, rep *domain.PortfolioReport) []custody.VaultAsset {
	var (
		mu      sync.Mutex
		records []custody.VaultAsset
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)

	for _, link := range links {
		g.Go(func() error {
			client, ok := s.clients[link.Workspace]
			if !ok || !client.Enabled() {
				mu.Lock()
				rep.Skipped = append(rep.Skipped, domain.SkippedAsset{
					Workspace:      link.Workspace,
					VaultAccountID: link.VaultAccountID,
					Reason:         domain.SkipReasonWorkspaceDisabled,
				})
				mu.Unlock()
				return nil
			}

			account, err := client.GetVaultAccount(gctx, link.VaultAccountID)
			if err != nil {
				mu.Lock()
				rep.WorkspaceErrors = append(rep.WorkspaceErrors, domain.WorkspaceError{
					Workspace:      link.Workspace,
					VaultAccountID: link.VaultAccountID,
					Err:            err.Error(),
				})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			records = append(records, account.Assets...)
			mu.Unlock()
			return nil
		})
	}

	// Workers only return nil; Wait is for completion, not errors.
	_ = g.Wait()

	sort.Slice(rep.WorkspaceErrors, func(i, j int) bool {
		a, b := rep.WorkspaceErrors[i], rep.WorkspaceErrors[j]
		if a.Workspace != b.Workspace {
			return a.Workspace < b.Workspace
		}
		return a.VaultAccountID < b.VaultAccountID
	})
	return records
}

func sortSkipped(skipped []domain.SkippedAsset) {
	sort.Slice(skipped, func(i, j int) bool {
		if skipped[i].Symbol != skipped[j].Symbol {
			return skipped[i].Symbol < skipped[j].Symbol
		}
		return skipped[i].Reason < skipped[j].Reason
	})
}

func reportOutcome(rep domain.PortfolioReport, err error) string {
	switch {
	case err != nil:
		return "error"
	case len(rep.WorkspaceErrors) > 0:
		return "partial"
	default:
		return "ok"
	}
}
