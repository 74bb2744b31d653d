package postgres

import (
	"context"
	"errors"
	"fmt"

	"ecash-billing-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository for one owner.
type WalletRepo struct {
	pool  Pool
	owner string
}

// NewWalletRepo creates a new WalletRepo scoped to owner.
func NewWalletRepo(pool Pool, owner string) *WalletRepo {
	return &WalletRepo{pool: pool, owner: owner}
}

// Get fetches the wallet record, or nil before the first login.
func (r *WalletRepo) Get(ctx context.Context) (*domain.WalletState, error) {
	query := `SELECT owner, private_key, mints, created_at, updated_at FROM wallets WHERE owner = $1`

	w := &domain.WalletState{}
	err := r.pool.QueryRow(ctx, query, r.owner).Scan(&w.Owner, &w.PrivateKey, &w.Mints, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// Save inserts the record or replaces it. The key of an existing record is
// only replaced by one from an older record.
func (r *WalletRepo) Save(ctx context.Context, w *domain.WalletState) error {
	query := `INSERT INTO wallets (owner, private_key, mints, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner) DO UPDATE SET
			mints = EXCLUDED.mints,
			updated_at = EXCLUDED.updated_at,
			private_key = CASE WHEN EXCLUDED.created_at < wallets.created_at
				THEN EXCLUDED.private_key ELSE wallets.private_key END,
			created_at = LEAST(wallets.created_at, EXCLUDED.created_at)`

	mints := w.Mints
	if mints == nil {
		mints = []string{}
	}
	if _, err := r.pool.Exec(ctx, query, r.owner, w.PrivateKey, mints, w.CreatedAt, w.UpdatedAt); err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}
	return nil
}
