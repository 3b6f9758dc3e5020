package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/KaramelBytes/minedash/internal/tidy"
)

const (
	batchSize     = 500
	columnsPerRow = 6
)

// PostgresWriter stores tidy records in the tidy_records table.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection, retries the ping up to attempts
// times and creates the schema if needed.
func NewPostgresWriter(ctx context.Context, dsn string, attempts int) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				_ = db.Close()
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after %d attempts: %w", attempts, err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tidy_records (
			dataset    TEXT             NOT NULL,
			entity     TEXT             NOT NULL,
			category   TEXT             NOT NULL DEFAULT '',
			year       INTEGER          NOT NULL DEFAULT 0,
			value      DOUBLE PRECISION,
			code       TEXT             NOT NULL DEFAULT '',
			loaded_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
			PRIMARY KEY (dataset, entity, category, year)
		);

		CREATE INDEX IF NOT EXISTS idx_tidy_records_year ON tidy_records(dataset, year);
	`)
	return err
}

// Write replaces the dataset's rows in one transaction.
func (pw *PostgresWriter) Write(ctx context.Context, dataset string, records []tidy.Record) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tidy_records WHERE dataset = $1", dataset); err != nil {
		return fmt.Errorf("postgres: clear %s: %w", dataset, err)
	}
	rows := collapse(records)
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		query, args := upsertBatch(dataset, rows[i:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: insert batch at %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func upsertBatch(dataset string, batch []tidy.Record) (string, []any) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*columnsPerRow)
	for idx, r := range batch {
		base := idx * columnsPerRow
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5, base+6))
		valueArgs = append(valueArgs,
			dataset, r.Entity, r.Category, r.Year,
			sql.NullFloat64{Float64: r.Value, Valid: !r.Missing},
			r.Code,
		)
	}
	query := fmt.Sprintf(`
		INSERT INTO tidy_records (dataset, entity, category, year, value, code)
		VALUES %s
		ON CONFLICT (dataset, entity, category, year) DO UPDATE SET value = EXCLUDED.value, code = EXCLUDED.code
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

// Close releases the connection pool.
func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
