package healthstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bipard/healthfetch/pkg/record"
)

const SchemaVersion = 1

// TableName is the record table. One row per data_date.
const TableName = "health_records"

// Migrate creates (or upgrades) the record schema in-place. The column DDL
// is generated from record.Columns so the schema can never drift from the
// merge output. Safe to run repeatedly.
func Migrate(ctx context.Context, db *sql.DB) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if db == nil {
		return fmt.Errorf("db is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			schema_version INTEGER NOT NULL
		);`,
		`INSERT INTO schema_meta (id, schema_version)
			VALUES (1, 0)
			ON CONFLICT(id) DO NOTHING;`,
		createRecordsTableSQL(),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_fetched_at ON %s(fetched_at);`, TableName, TableName),
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}

	var current int
	if err := tx.QueryRowContext(ctx, `SELECT schema_version FROM schema_meta WHERE id=1`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}
	if current != SchemaVersion {
		if _, err := tx.ExecContext(ctx, `UPDATE schema_meta SET schema_version=? WHERE id=1`, SchemaVersion); err != nil {
			return fmt.Errorf("update schema_version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func createRecordsTableSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", TableName)
	b.WriteString("\tid INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	for _, col := range record.Columns {
		if col == "data_date" {
			b.WriteString("\tdata_date TEXT NOT NULL UNIQUE,\n")
			continue
		}
		fmt.Fprintf(&b, "\t%s TEXT,\n", col)
	}
	b.WriteString("\tstored_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))\n")
	b.WriteString(");")
	return b.String()
}
