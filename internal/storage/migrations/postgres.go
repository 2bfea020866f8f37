package migrations

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"drop-storefront/internal/storage/postgres"
)

// RunPostgresMigrations applies the ledger schema. Files are idempotent
// and run as a whole since pgx accepts multi-statement Exec without arguments.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	migrations, err := PostgresMigrations()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		logger.Info("applied postgres migration", zap.String("file", m.Name))
	}
	return nil
}
