package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OverrideRepository supplies the operator-configured asset symbol →
// market-data identifier table, consulted before the built-in defaults.
type OverrideRepository interface {
	Overrides(ctx context.Context) (map[string]string, error)
	SetOverride(ctx context.Context, symbol, marketID string) error
}

// PgOverrideRepository implements OverrideRepository with PostgreSQL.
type PgOverrideRepository struct {
	pool *pgxpool.Pool
}

// NewPgOverrideRepository creates a new PostgreSQL override repository.
func NewPgOverrideRepository(pool *pgxpool.Pool) *PgOverrideRepository {
	return &PgOverrideRepository{pool: pool}
}

func (r *PgOverrideRepository) Overrides(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT symbol, market_id FROM market_id_overrides`)
	if err != nil {
		return nil, fmt.Errorf("querying market id overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]string)
	for rows.Next() {
		var symbol, marketID string
		if err := rows.Scan(&symbol, &marketID); err != nil {
			return nil, fmt.Errorf("scanning override: %w", err)
		}
		overrides[strings.ToUpper(symbol)] = marketID
	}
	return overrides, rows.Err()
}

func (r *PgOverrideRepository) SetOverride(ctx context.Context, symbol, marketID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO market_id_overrides (symbol, market_id, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (symbol) DO UPDATE SET market_id = $2, updated_at = NOW()`,
		strings.ToUpper(symbol), marketID)
	if err != nil {
		return fmt.Errorf("saving override for %s: %w", symbol, err)
	}
	return nil
}
