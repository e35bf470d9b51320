package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lending-desk/lending/src/configs"
	"github.com/lending-desk/lending/src/lending"
	"github.com/lending-desk/lending/src/pkg/migration"
	"github.com/lending-desk/lending/src/pkg/store"
)

func testConfig(t *testing.T) *configs.Config {
	t.Helper()
	cfg := configs.NewConfig()
	cfg.AppDataPath = filepath.Join(t.TempDir(), ".appdata")
	cfg.Metrics.TextfilePath = filepath.Join(cfg.AppDataPath, "metrics", "lending.prom")
	return cfg
}

func TestStart(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := Start(ctx, cfg, WithAppVersion("1.0.0", "0.1.0"))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, uint(0), a.Result().FromVersion)
	assert.Equal(t, uint(4), a.Result().ToVersion)
	assert.Equal(t, []string{"greet"}, a.Commands())

	msg, err := a.Invoke(ctx, "greet", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Hello, Alice! You've been greeted from Go!", msg)

	_, err = a.Invoke(ctx, "transfer", "100")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	status, err := a.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.UpToDate())
	assert.Len(t, status.Applied, 4)

	v, err := lending.GetMeta(ctx, a.Store().DB(), lending.MetaAppVersion)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v)

	data, err := os.ReadFile(cfg.Metrics.TextfilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lending_schema_version 4")

	// 首次创建不备份
	backups, err := store.NewBackupManager(cfg.DBPath(), 0).ListBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestStart_SecondRunIsNoop(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	first, err := Start(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Start(ctx, cfg)
	require.NoError(t, err)
	defer second.Close()
	assert.Empty(t, second.Result().Applied)
	assert.Equal(t, 4, second.Result().Skipped)
}

func TestStart_UpgradeTakesBackup(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	all, err := lending.Migrations()
	require.NoError(t, err)

	first, err := Start(ctx, cfg, WithMigrations(all[:3]))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Start(ctx, cfg, WithMigrations(all))
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, []uint{4}, second.Result().Applied)
	assert.NotEmpty(t, second.Result().BackupPath)
	assert.FileExists(t, second.Result().BackupPath)
}

func TestStart_StoreLocked(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	first, err := Start(ctx, cfg)
	require.NoError(t, err)
	defer first.Close()

	_, err = Start(ctx, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, migration.ErrStoreUnavailable)
	assert.ErrorIs(t, err, store.ErrLocked)
	assert.Contains(t, err.Error(), "startup aborted")
}

func TestStart_FailedMigrationAbortsAndReleasesStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	broken := []migration.Migration{
		{Version: 1, Description: "create borrowers", Script: `CREATE TABLE borrowers (id TEXT PRIMARY KEY);`},
		{Version: 2, Description: "broken", Script: `ALTER TABLE nowhere ADD COLUMN notes TEXT;`},
	}
	_, err := Start(ctx, cfg, WithMigrations(broken))
	require.Error(t, err)
	assert.ErrorIs(t, err, migration.ErrScriptFailed)

	// 数据库已释放，可以再次打开
	status, err := Inspect(ctx, cfg, WithMigrations(broken))
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.CurrentVersion)
	require.Len(t, status.Pending, 1)
	assert.Equal(t, uint(2), status.Pending[0].Version)
}

func TestStart_IncompatibleVersion(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	newer, err := Start(ctx, cfg, WithAppVersion("2.0.0", "2.0.0"))
	require.NoError(t, err)
	require.NoError(t, newer.Close())

	_, err = Start(ctx, cfg, WithAppVersion("1.5.0", "1.0.0"))
	assert.ErrorIs(t, err, lending.ErrIncompatibleVersion)
}

func TestStart_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.File = "../escape.db"

	_, err := Start(context.Background(), cfg)
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(cfg.AppDataPath), "escape.db"))
}

func TestInspect_FreshStore(t *testing.T) {
	cfg := testConfig(t)
	status, err := Inspect(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, uint(0), status.CurrentVersion)
	assert.Equal(t, uint(4), status.LatestVersion)
	assert.Len(t, status.Pending, 4)
	assert.NoFileExists(t, cfg.DBPath())
}

func TestRestoreBackup_DefaultsToLatest(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	all, err := lending.Migrations()
	require.NoError(t, err)

	first, err := Start(ctx, cfg, WithMigrations(all[:3]))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	_, err = RestoreBackup(ctx, cfg, "")
	assert.ErrorIs(t, err, ErrNoBackup)

	second, err := Start(ctx, cfg, WithMigrations(all))
	require.NoError(t, err)
	backupPath := second.Result().BackupPath
	require.NoError(t, second.Close())

	restored, err := RestoreBackup(ctx, cfg, "")
	require.NoError(t, err)
	assert.Equal(t, backupPath, restored)

	status, err := Inspect(ctx, cfg, WithMigrations(all))
	require.NoError(t, err)
	assert.Equal(t, uint(3), status.CurrentVersion)
}
