package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ecash-billing-engine/internal/core/domain"
	"ecash-billing-engine/internal/core/ports"
)

// HistoryRepo implements ports.HistoryRepository for one owner.
type HistoryRepo struct {
	pool  Pool
	owner string
}

// NewHistoryRepo creates a new HistoryRepo scoped to owner.
func NewHistoryRepo(pool Pool, owner string) *HistoryRepo {
	return &HistoryRepo{pool: pool, owner: owner}
}

// Append inserts an entry. Replaying an entry id is a no-op.
func (r *HistoryRepo) Append(ctx context.Context, e *domain.HistoryEntry) error {
	query := `INSERT INTO history (id, owner, type, amount, fee, status, balance_after,
		mint_url, provider, model, request_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query,
		e.ID, r.owner, e.Type, e.Amount, e.Fee, e.Status, e.BalanceAfter,
		e.MintURL, e.Provider, e.Model, e.RequestID, e.Message, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// List fetches entries with filtering and pagination, newest first.
func (r *HistoryRepo) List(ctx context.Context, params ports.HistoryListParams) ([]domain.HistoryEntry, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("owner = $%d", argIdx))
	args = append(args, r.owner)
	argIdx++

	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM history "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	page, size := params.Page, params.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	dataQuery := fmt.Sprintf(`SELECT id, type, amount, fee, status, balance_after,
		mint_url, provider, model, request_id, message, created_at
		FROM history %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		e := domain.HistoryEntry{}
		if err := rows.Scan(
			&e.ID, &e.Type, &e.Amount, &e.Fee, &e.Status, &e.BalanceAfter,
			&e.MintURL, &e.Provider, &e.Model, &e.RequestID, &e.Message, &e.Timestamp,
		); err != nil {
			return nil, 0, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, total, nil
}

// GetStats aggregates successful movements since the given time.
func (r *HistoryRepo) GetStats(ctx context.Context, since *time.Time) (*ports.HistoryStats, error) {
	args := []any{r.owner}
	condition := "owner = $1"
	if since != nil {
		condition += " AND created_at >= $2"
		args = append(args, *since)
	}

	query := fmt.Sprintf(`SELECT
		COUNT(*) AS entries,
		COALESCE(SUM(amount) FILTER (WHERE type = 'mint' AND status = 'success'), 0) AS minted,
		COALESCE(SUM(amount) FILTER (WHERE type = 'melt' AND status = 'success'), 0) AS melted,
		COALESCE(SUM(amount) FILTER (WHERE type = 'send' AND status = 'success'), 0) AS sent,
		COALESCE(SUM(amount) FILTER (WHERE type = 'receive' AND status = 'success'), 0) AS received,
		COALESCE(SUM(amount) FILTER (WHERE type = 'spent'), 0) AS spent,
		COALESCE(SUM(amount) FILTER (WHERE type = 'refund' AND status = 'success'), 0) AS refunded,
		COALESCE(SUM(fee), 0) AS fees
		FROM history WHERE %s`, condition)

	stats := &ports.HistoryStats{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.Entries, &stats.TotalMinted, &stats.TotalMelted, &stats.TotalSent,
		&stats.TotalReceived, &stats.TotalSpent, &stats.TotalRefunded, &stats.TotalFees,
	)
	if err != nil {
		return nil, fmt.Errorf("get history stats: %w", err)
	}
	return stats, nil
}
