package utils

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestPostgresPoolDefaults(t *testing.T) {
	got := PostgresPoolConfig{MaxOpenConns: 5}.withDefaults()
	if got.MaxOpenConns != 5 || got.MaxIdleConns != 25 || got.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected defaults %+v", got)
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := OpenPostgres(context.Background(), "pgx", dsn, PostgresPoolConfig{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := Migrate(ctx, db, `CREATE TABLE IF NOT EXISTS utils_tx_probe (id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _, _ = db.Exec(`DROP TABLE IF EXISTS utils_tx_probe`) })

	boom := errors.New("boom")
	err := WithTx(ctx, db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO utils_tx_probe (id) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM utils_tx_probe`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected rollback, found %d rows", n)
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	stmt := `CREATE TABLE IF NOT EXISTS utils_migrate_probe (id TEXT PRIMARY KEY)`
	t.Cleanup(func() { _, _ = db.Exec(`DROP TABLE IF EXISTS utils_migrate_probe`) })
	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, db, stmt); err != nil {
			t.Fatalf("migrate run %d: %v", i, err)
		}
	}
}
