package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is the aggregated quantity of one asset across all vault accounts
// belonging to a linked identity. Symbol is uppercase-normalized.
type Holding struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ValuedLine is one priced holding in a portfolio report.
type ValuedLine struct {
	Symbol       string          `json:"symbol"`
	MarketID     string          `json:"marketId"`
	Quantity     decimal.Decimal `json:"quantity"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	Value        decimal.Decimal `json:"value"`
	PnlAbsolute  decimal.Decimal `json:"pnlAbsolute"`
	PnlPercent   decimal.Decimal `json:"pnlPercent"`
}

// SkipReason explains why an asset or workspace was excluded from a report.
type SkipReason string

const (
	SkipReasonUnmappedAsset     SkipReason = "unmapped_asset"
	SkipReasonZeroQuantity      SkipReason = "zero_quantity"
	SkipReasonWorkspaceDisabled SkipReason = "workspace_disabled"
	SkipReasonFetchFailed       SkipReason = "fetch_failed"
)

// SkippedAsset records an asset or account excluded from valuation and why.
// Symbol is set for asset-level skips; Workspace and VaultAccountID for
// account-level ones.
type SkippedAsset struct {
	Symbol         string     `json:"symbol,omitempty"`
	Workspace      Workspace  `json:"workspace,omitempty"`
	VaultAccountID string     `json:"vaultAccountId,omitempty"`
	Reason         SkipReason `json:"reason"`
}

// WorkspaceError records an upstream failure scoped to one workspace.
// The report is still built from the workspaces that succeeded.
type WorkspaceError struct {
	Workspace      Workspace `json:"workspace"`
	VaultAccountID string    `json:"vaultAccountId,omitempty"`
	Err            string    `json:"error"`
}

// PortfolioReport is the valued portfolio for one linked identity.
// Lines are ordered by symbol; totals are exact decimal sums over the lines.
type PortfolioReport struct {
	Lines            []ValuedLine     `json:"lines"`
	TotalValue       decimal.Decimal  `json:"totalValue"`
	TotalPnlAbsolute decimal.Decimal  `json:"totalPnlAbsolute"`
	Skipped          []SkippedAsset   `json:"skipped,omitempty"`
	WorkspaceErrors  []WorkspaceError `json:"workspaceErrors,omitempty"`
	GeneratedAt      time.Time        `json:"generatedAt"`
}
