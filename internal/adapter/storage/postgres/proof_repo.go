package postgres

import (
	"context"
	"fmt"

	"ecash-billing-engine/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// ProofRepo implements ports.ProofRepository for one owner.
type ProofRepo struct {
	pool  Pool
	tx    *Transactor
	owner string
}

// NewProofRepo creates a new ProofRepo scoped to owner.
func NewProofRepo(pool Pool, owner string) *ProofRepo {
	return &ProofRepo{pool: pool, tx: NewTransactor(pool), owner: owner}
}

// List returns every unspent proof of the owner.
func (r *ProofRepo) List(ctx context.Context) ([]ports.ProofRecord, error) {
	query := `SELECT mint_url, provenance, keyset_id, amount, secret, c
		FROM proofs WHERE owner = $1 ORDER BY mint_url, amount, secret`

	rows, err := r.pool.Query(ctx, query, r.owner)
	if err != nil {
		return nil, fmt.Errorf("list proofs: %w", err)
	}
	defer rows.Close()

	var records []ports.ProofRecord
	for rows.Next() {
		var rec ports.ProofRecord
		if err := rows.Scan(
			&rec.MintURL, &rec.Provenance,
			&rec.Proof.ID, &rec.Proof.Amount, &rec.Proof.Secret, &rec.Proof.C,
		); err != nil {
			return nil, fmt.Errorf("scan proof row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proof rows: %w", err)
	}
	return records, nil
}

// ApplyChange writes one ledger change atomically: deletes first, then
// upserts. An upsert of a stored proof re-tags its mint and provenance.
func (r *ProofRepo) ApplyChange(ctx context.Context, change ports.ProofChange) error {
	if len(change.Delete) == 0 && len(change.Put) == 0 {
		return nil
	}
	return r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		for _, k := range change.Delete {
			if _, err := tx.Exec(ctx,
				`DELETE FROM proofs WHERE owner = $1 AND keyset_id = $2 AND secret = $3`,
				r.owner, k.ID, k.Secret,
			); err != nil {
				return fmt.Errorf("delete proof: %w", err)
			}
		}
		for _, rec := range change.Put {
			if _, err := tx.Exec(ctx,
				`INSERT INTO proofs (owner, keyset_id, secret, amount, c, mint_url, provenance)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (owner, keyset_id, secret)
				DO UPDATE SET mint_url = EXCLUDED.mint_url, provenance = EXCLUDED.provenance`,
				r.owner, rec.Proof.ID, rec.Proof.Secret, rec.Proof.Amount, rec.Proof.C, rec.MintURL, rec.Provenance,
			); err != nil {
				return fmt.Errorf("upsert proof: %w", err)
			}
		}
		return nil
	})
}
