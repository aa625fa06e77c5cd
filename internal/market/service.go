package market

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Service serves current and 24-hours-ago prices through the TTL caches,
// only reaching upstream for identifiers whose entries are missing or stale.
type Service struct {
	client  *Client
	current *priceCache
	dayAgo  *priceCache
}

// NewService creates a price service backed by the given market-data client.
func NewService(client *Client) *Service {
	return newServiceWithClock(client, time.Now)
}

// newServiceWithClock allows tests to inject a fake clock.
func newServiceWithClock(client *Client, now func() time.Time) *Service {
	return &Service{
		client:  client,
		current: newPriceCache("current", currentPriceTTL, now),
		dayAgo:  newPriceCache("day_ago", dayAgoPriceTTL, now),
	}
}

// CurrentPrices returns USD prices for the given market identifiers. Fresh
// cache entries are served directly; the remaining identifiers are batched
// into a single upstream call whose full result set fills the cache.
func (s *Service) CurrentPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal, len(ids))

	missing := lo.Filter(lo.Uniq(ids), func(id string, _ int) bool {
		price, ok := s.current.get(id)
		if ok {
			result[id] = price
		}
		return !ok
	})

	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := s.client.SimplePrices(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("fetching current prices: %w", err)
	}
	for id, price := range fetched {
		s.current.set(id, price)
		result[id] = price
	}

	return result, nil
}

// PriceDayAgo returns the price of one market identifier roughly 24 hours
// ago: the oldest point of the past-day series, or the last point when the
// series holds exactly one sample.
func (s *Service) PriceDayAgo(ctx context.Context, id string) (decimal.Decimal, error) {
	if price, ok := s.dayAgo.get(id); ok {
		return price, nil
	}

	points, err := s.client.DayChart(ctx, id)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching day chart for %s: %w", id, err)
	}
	if len(points) == 0 {
		return decimal.Zero, fmt.Errorf("empty day chart for %s", id)
	}

	price := points[0].Price
	if len(points) == 1 {
		price = points[len(points)-1].Price
	}

	s.dayAgo.set(id, price)
	return price, nil
}

// WarmCurrentPrices pre-fills the current-price cache for the given ids.
// Used by the refresh worker to keep report latency low.
func (s *Service) WarmCurrentPrices(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	fetched, err := s.client.SimplePrices(ctx, lo.Uniq(ids))
	if err != nil {
		return fmt.Errorf("warming current prices: %w", err)
	}
	for id, price := range fetched {
		s.current.set(id, price)
	}
	return nil
}
