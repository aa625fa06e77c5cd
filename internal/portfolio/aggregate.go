// Package portfolio merges raw vault asset records into canonical holdings.
package portfolio

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/vaultfolio/vaultfolio/internal/custody"
	"github.com/vaultfolio/vaultfolio/internal/domain"
)

// Aggregate sums asset records drawn from all vault accounts of one linked
// identity into net per-symbol quantities. Symbols are uppercase-normalized;
// records with unparseable or missing quantities count as zero. Symbols whose
// total is exactly zero are excluded from the totals and returned separately
// so reports can name why they were dropped. The sum is commutative, so the
// order accounts were fetched in does not matter.
func Aggregate(records []custody.VaultAsset) (map[string]decimal.Decimal, []string) {
	totals := make(map[string]decimal.Decimal)
	for _, rec := range records {
		symbol := strings.ToUpper(strings.TrimSpace(rec.ID))
		if symbol == "" {
			continue
		}
		totals[symbol] = totals[symbol].Add(domain.SafeParse(rec.Total))
	}

	var zeroed []string
	for symbol, total := range totals {
		if total.IsZero() {
			delete(totals, symbol)
			zeroed = append(zeroed, symbol)
		}
	}
	sort.Strings(zeroed)
	return totals, zeroed
}

// Holdings converts aggregated quantities into a slice ordered by symbol.
func Holdings(totals map[string]decimal.Decimal) []domain.Holding {
	symbols := lo.Keys(totals)
	sort.Strings(symbols)

	return lo.Map(symbols, func(symbol string, _ int) domain.Holding {
		return domain.Holding{Symbol: symbol, Quantity: totals[symbol]}
	})
}
