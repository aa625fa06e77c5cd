package market

import "sort"

// defaultMarketIDs is the built-in asset symbol → market identifier table.
// Operator overrides from the store are consulted first; symbols found in
// neither table cannot be priced and are dropped from reports.
var defaultMarketIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"USDT":  "tether",
	"USDC":  "usd-coin",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"LTC":   "litecoin",
	"BCH":   "bitcoin-cash",
	"LINK":  "chainlink",
	"AVAX":  "avalanche-2",
	"MATIC": "matic-network",
	"XLM":   "stellar",
	"TRX":   "tron",
	"BNB":   "binancecoin",
	"ATOM":  "cosmos",
	"ALGO":  "algorand",
	"DAI":   "dai",
}

// ResolveMarketID maps an asset symbol to its market-data identifier,
// checking operator overrides before the built-in table.
func ResolveMarketID(symbol string, overrides map[string]string) (string, bool) {
	if id, ok := overrides[symbol]; ok && id != "" {
		return id, true
	}
	id, ok := defaultMarketIDs[symbol]
	return id, ok
}

// KnownMarketIDs returns the distinct market identifiers reachable through
// the built-in table plus the given overrides, sorted for stable output.
func KnownMarketIDs(overrides map[string]string) []string {
	seen := make(map[string]bool, len(defaultMarketIDs)+len(overrides))
	for _, id := range defaultMarketIDs {
		seen[id] = true
	}
	for _, id := range overrides {
		if id != "" {
			seen[id] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
