package postgres

import (
	"context"
	"fmt"
)

// tables the engine cannot run without.
var requiredTables = []string{"wallets", "proofs", "invoices", "history", "audit_logs"}

// HealthCheck implements ports.HealthChecker for PostgreSQL. A reachable
// database without the engine's schema counts as unhealthy.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping checks connectivity and that every engine table exists.
func (h *HealthCheck) Ping(ctx context.Context) error {
	var n int
	err := h.pool.QueryRow(ctx,
		`SELECT count(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ANY($1)`,
		requiredTables,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("query schema: %w", err)
	}
	if n != len(requiredTables) {
		return fmt.Errorf("schema incomplete: %d of %d tables present", n, len(requiredTables))
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "postgres"
}
