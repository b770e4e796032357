package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"solana-signals/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded ledger schema. pgx handles
// multi-statement scripts natively, so each file runs as one Exec.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := sqlFiles(postgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, file := range files {
		data, err := fs.ReadFile(postgresFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return nil
}
