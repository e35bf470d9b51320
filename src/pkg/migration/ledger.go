package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LedgerTable 记录已应用版本的表名
const LedgerTable = "schema_ledger"

const createLedgerSQL = `
	CREATE TABLE IF NOT EXISTS ` + LedgerTable + ` (
		version      INTEGER PRIMARY KEY,
		description  TEXT    NOT NULL,
		checksum     TEXT    NOT NULL,
		applied_at   TEXT    NOT NULL,
		execution_ms INTEGER NOT NULL,
		run_id       TEXT    NOT NULL
	)
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func ensureLedger(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, createLedgerSQL); err != nil {
		return fmt.Errorf("create %s: %w", LedgerTable, err)
	}
	return nil
}

func ledgerExists(ctx context.Context, conn *sql.Conn) (bool, error) {
	var n int
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, LedgerTable).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("look up %s: %w", LedgerTable, err)
	}
	return n > 0, nil
}

// readLedger 按版本升序返回所有账本记录
func readLedger(ctx context.Context, conn *sql.Conn) ([]AppliedMigration, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT version, description, checksum, applied_at, execution_ms, run_id
		FROM `+LedgerTable+`
		ORDER BY version ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", LedgerTable, err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			a           AppliedMigration
			version     int64
			appliedAt   string
			executionMs int64
		)
		if err := rows.Scan(&version, &a.Description, &a.Checksum, &appliedAt, &executionMs, &a.RunID); err != nil {
			return nil, fmt.Errorf("scan %s: %w", LedgerTable, err)
		}
		a.Version = uint(version)
		a.ExecutionTime = time.Duration(executionMs) * time.Millisecond
		t, err := time.Parse(time.RFC3339Nano, appliedAt)
		if err != nil {
			return nil, fmt.Errorf("version %d has malformed applied_at %q: %w", a.Version, appliedAt, err)
		}
		a.AppliedAt = t
		applied = append(applied, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", LedgerTable, err)
	}
	return applied, nil
}

// recordApplied 必须与脚本在同一个事务中调用，保证账本中不会出现未提交的版本
func recordApplied(ctx context.Context, tx execer, m Migration, appliedAt time.Time, elapsed time.Duration, runID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO `+LedgerTable+` (version, description, checksum, applied_at, execution_ms, run_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, int64(m.Version), m.Description, m.Checksum(), appliedAt.UTC().Format(time.RFC3339Nano), elapsed.Milliseconds(), runID)
	if err != nil {
		return fmt.Errorf("record version %d: %w", m.Version, err)
	}
	return nil
}

func highestApplied(applied []AppliedMigration) uint {
	if len(applied) == 0 {
		return 0
	}
	return applied[len(applied)-1].Version
}
