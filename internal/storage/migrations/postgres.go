package migrations

import (
	"context"
	"fmt"

	"solana-exit-engine/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded schema files in name order.
// Every file is idempotent, so this runs on each start.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
