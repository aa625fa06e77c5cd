package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaultfolio/vaultfolio/internal/domain"
)

// ErrLinkCodeInvalid is returned when a claimed code is unknown, already
// used, or expired. Deliberately indistinguishable to the claimant.
var ErrLinkCodeInvalid = errors.New("link code invalid or expired")

// LinkRepository resolves linked identities to their vault accounts and
// manages one-time link codes.
type LinkRepository interface {
	LinksForIdentity(ctx context.Context, identity string) ([]domain.IdentityLink, error)
	IssueLinkCode(ctx context.Context, ws domain.Workspace, vaultAccountID string, ttl time.Duration) (string, error)
	ClaimLinkCode(ctx context.Context, code, identity string) (domain.IdentityLink, error)
}

// PgLinkRepository implements LinkRepository with PostgreSQL.
type PgLinkRepository struct {
	pool *pgxpool.Pool
}

// NewPgLinkRepository creates a new PostgreSQL link repository.
func NewPgLinkRepository(pool *pgxpool.Pool) *PgLinkRepository {
	return &PgLinkRepository{pool: pool}
}

func (r *PgLinkRepository) LinksForIdentity(ctx context.Context, identity string) ([]domain.IdentityLink, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT workspace, vault_account_id FROM identity_links
		 WHERE identity = $1
		 ORDER BY workspace, vault_account_id`,
		identity)
	if err != nil {
		return nil, fmt.Errorf("querying links for %s: %w", identity, err)
	}
	defer rows.Close()

	var links []domain.IdentityLink
	for rows.Next() {
		var link domain.IdentityLink
		if err := rows.Scan(&link.Workspace, &link.VaultAccountID); err != nil {
			return nil, fmt.Errorf("scanning identity link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// IssueLinkCode mints a one-time code bound to a (workspace, account) pair.
// The code is handed to the user out of band and claimed later.
func (r *PgLinkRepository) IssueLinkCode(ctx context.Context, ws domain.Workspace, vaultAccountID string, ttl time.Duration) (string, error) {
	code := uuid.New().String()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO link_codes (code, workspace, vault_account_id, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		code, ws, vaultAccountID, time.Now().Add(ttl))
	if err != nil {
		return "", fmt.Errorf("issuing link code: %w", err)
	}
	return code, nil
}

// ClaimLinkCode atomically consumes an unused, unexpired code and records
// the identity link it carries.
func (r *PgLinkRepository) ClaimLinkCode(ctx context.Context, code, identity string) (domain.IdentityLink, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.IdentityLink{}, fmt.Errorf("beginning claim transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var link domain.IdentityLink
	err = tx.QueryRow(ctx,
		`SELECT workspace, vault_account_id FROM link_codes
		 WHERE code = $1 AND used_at IS NULL AND expires_at > NOW()
		 FOR UPDATE`,
		code).Scan(&link.Workspace, &link.VaultAccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.IdentityLink{}, ErrLinkCodeInvalid
	}
	if err != nil {
		return domain.IdentityLink{}, fmt.Errorf("looking up link code: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE link_codes SET used_at = NOW(), claimed_by = $2 WHERE code = $1`,
		code, identity); err != nil {
		return domain.IdentityLink{}, fmt.Errorf("consuming link code: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO identity_links (identity, workspace, vault_account_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		identity, link.Workspace, link.VaultAccountID); err != nil {
		return domain.IdentityLink{}, fmt.Errorf("recording identity link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.IdentityLink{}, fmt.Errorf("committing claim: %w", err)
	}
	return link, nil
}
