package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lending-desk/lending/src/pkg/migration"
)

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig("test.db")
	cfg.JournalMode = "wal"
	cfg.Synchronous = "full"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "WAL", cfg.JournalMode)
	assert.Equal(t, "FULL", cfg.Synchronous)

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty path", func(c *Config) { c.Path = " " }},
		{"negative busy timeout", func(c *Config) { c.BusyTimeout = -time.Second }},
		{"bad journal mode", func(c *Config) { c.JournalMode = "ROLLBACK" }},
		{"bad synchronous", func(c *Config) { c.Synchronous = "SOMETIMES" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("test.db")
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "lending.db")

	h, err := Open(ctx, DefaultConfig(dbPath))
	require.NoError(t, err)
	assert.Equal(t, dbPath, h.Path())
	assert.FileExists(t, LeasePath(dbPath))

	info, err := ReadLeaseInfo(dbPath)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.Equal(t, dbPath, info.DBPath)

	var mode string
	require.NoError(t, h.DB().QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, h.DB().QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	info, err = ReadLeaseInfo(dbPath)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestOpen_Exclusive(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "lending.db")

	first, err := Open(ctx, DefaultConfig(dbPath))
	require.NoError(t, err)

	_, err = Open(ctx, DefaultConfig(dbPath))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)
	assert.ErrorIs(t, err, migration.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "PID")

	require.NoError(t, first.Close())

	second, err := Open(ctx, DefaultConfig(dbPath))
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestOpen_NotADatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lending.db")
	garbage := make([]byte, 4096)
	for i := range garbage {
		garbage[i] = byte('x')
	}
	require.NoError(t, os.WriteFile(dbPath, garbage, 0644))

	_, err := Open(context.Background(), DefaultConfig(dbPath))
	assert.ErrorIs(t, err, migration.ErrStoreUnavailable)

	// 失败后租约已释放
	lease, err := AcquireLease(dbPath, "")
	require.NoError(t, err)
	require.NoError(t, lease.Release())
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "lending.db"))
	cfg.JournalMode = "SIDEWAYS"

	_, err := Open(context.Background(), cfg)
	assert.ErrorIs(t, err, migration.ErrStoreUnavailable)
}

func TestHandle_RunsMigrations(t *testing.T) {
	ctx := context.Background()
	h, err := Open(ctx, DefaultConfig(filepath.Join(t.TempDir(), "lending.db")))
	require.NoError(t, err)
	defer h.Close()

	migrations := []migration.Migration{
		{Version: 1, Description: "create loans", Script: `CREATE TABLE loans (id INTEGER PRIMARY KEY);`},
		{Version: 2, Description: "add notes", Script: `ALTER TABLE loans ADD COLUMN notes TEXT;`},
	}

	backups := NewBackupManager(h.Path(), 0)
	runner := migration.NewRunner(migration.WithBackuper(backups))

	_, err = runner.Apply(ctx, h, migrations[:1])
	require.NoError(t, err)

	result, err := runner.Apply(ctx, h, migrations)
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, result.Applied)
	require.NotEmpty(t, result.BackupPath)
	assert.FileExists(t, result.BackupPath)

	_, err = h.DB().ExecContext(ctx, `INSERT INTO loans (notes) VALUES ('ok')`)
	require.NoError(t, err)
}
