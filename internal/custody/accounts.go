package custody

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// VaultAsset is one asset balance as reported per vault account. Total is
// kept as the provider's exact decimal string; parsing happens downstream.
type VaultAsset struct {
	ID    string `json:"id"`
	Total string `json:"total"`
}

// VaultAccount is a custody-managed container of asset balances.
type VaultAccount struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Assets []VaultAsset `json:"assets"`
}

// AccountPage is one page of a vault account listing. Next is the cursor for
// the following page, empty on the last page.
type AccountPage struct {
	Accounts []VaultAccount `json:"accounts"`
	Next     string         `json:"next,omitempty"`
}

// GetVaultAccount fetches a single vault account snapshot.
func (c *Client) GetVaultAccount(ctx context.Context, accountID string) (VaultAccount, error) {
	var account VaultAccount
	path := fmt.Sprintf("/v1/vault/accounts/%s", url.PathEscape(accountID))
	if err := c.getJSON(ctx, path, &account); err != nil {
		return VaultAccount{}, fmt.Errorf("fetching vault account %s: %w", accountID, err)
	}
	return account, nil
}

// ListVaultAccounts fetches one page of vault accounts. The caller drives
// pagination by passing back Next until it is empty; a failed page aborts
// the listing and may be resumed from the last successful cursor.
func (c *Client) ListVaultAccounts(ctx context.Context, pageSize int, cursor string) (AccountPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(pageSize))
	if cursor != "" {
		q.Set("next", cursor)
	}

	var page AccountPage
	path := "/v1/vault/accounts_paged?" + q.Encode()
	if err := c.getJSON(ctx, path, &page); err != nil {
		return AccountPage{}, fmt.Errorf("listing vault accounts: %w", err)
	}
	return page, nil
}
