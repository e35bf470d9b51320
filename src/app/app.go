// Package app 按固定顺序启动应用：打开数据库、迁移、记录版本、注册命令。
// 任何一步失败都会中止启动，不会在结构不完整的数据库上提供服务
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lending-desk/lending/src/configs"
	"github.com/lending-desk/lending/src/consts"
	"github.com/lending-desk/lending/src/lending"
	"github.com/lending-desk/lending/src/metrics"
	"github.com/lending-desk/lending/src/pkg/migration"
	appsentry "github.com/lending-desk/lending/src/pkg/sentry"
	"github.com/lending-desk/lending/src/pkg/store"
)

// App 已完成迁移、可以对外提供命令的应用实例
type App struct {
	cfg        *configs.Config
	store      *store.Handle
	logger     *logrus.Entry
	metrics    *metrics.Collector
	commands   *Commands
	migrations []migration.Migration
	result     *migration.Result
}

type options struct {
	migrations    []migration.Migration
	appVersion    string
	minCompatible string
}

// Option 调整启动参数
type Option func(*options)

// WithMigrations 替换内置的迁移列表
func WithMigrations(migrations []migration.Migration) Option {
	return func(o *options) {
		o.migrations = migrations
	}
}

// WithAppVersion 指定写入 system_meta 的程序版本与最低兼容版本
func WithAppVersion(appVersion, minCompatible string) Option {
	return func(o *options) {
		o.appVersion = appVersion
		o.minCompatible = minCompatible
	}
}

// Start 打开数据库并迁移到最新版本。失败时已打开的资源会被释放
func Start(ctx context.Context, cfg *configs.Config, opts ...Option) (*App, error) {
	app, err := start(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("startup aborted: %w", err)
	}
	return app, nil
}

func start(ctx context.Context, cfg *configs.Config, opts ...Option) (app *App, err error) {
	o := &options{
		appVersion:    consts.Version(),
		minCompatible: consts.MinCompatibleVersion,
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := cfg.Verify(); err != nil {
		return nil, err
	}

	logger := logrus.WithFields(logrus.Fields{
		"component": "app",
		"db_path":   cfg.DBPath(),
	})

	handle, err := openStore(ctx, cfg, o.appVersion, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			handle.Close()
		}
	}()

	migrations := o.migrations
	if migrations == nil {
		if migrations, err = lending.Migrations(); err != nil {
			return nil, err
		}
	}

	collector := metrics.New()
	result, err := newRunner(cfg, handle, collector, logger).Apply(ctx, handle, migrations)
	if err != nil {
		writeMetrics(cfg, collector, logger)
		return nil, err
	}

	if err := lending.RecordAppVersion(ctx, handle.DB(), o.appVersion, o.minCompatible); err != nil {
		return nil, err
	}
	if deviceID, err := lending.DeviceID(ctx, handle.DB()); err == nil {
		appsentry.SetDeviceID(deviceID)
	} else {
		logger.WithError(err).Warn("failed to load device id")
	}
	appsentry.SetTag("schema_version", fmt.Sprint(result.ToVersion))

	writeMetrics(cfg, collector, logger)

	commands := NewCommands()
	if err := commands.Register("greet", Greet); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"schema_version": result.ToVersion,
		"applied":        len(result.Applied),
	}).Info("application started")

	return &App{
		cfg:        cfg,
		store:      handle,
		logger:     logger,
		metrics:    collector,
		commands:   commands,
		migrations: migrations,
		result:     result,
	}, nil
}

func openStore(ctx context.Context, cfg *configs.Config, appVersion string, logger *logrus.Entry) (*store.Handle, error) {
	storeCfg := StoreConfig(cfg)
	storeCfg.AppVersion = appVersion
	handle, err := store.Open(ctx, storeCfg)
	if err != nil {
		if !errors.Is(err, store.ErrLocked) {
			if diag := configs.DiagnoseFilePermission(filepath.Dir(cfg.DBPath())).FormatError(); diag != "" {
				logger.Warn(diag)
			}
		}
		return nil, err
	}
	return handle, nil
}

func newRunner(cfg *configs.Config, handle *store.Handle, collector *metrics.Collector, logger *logrus.Entry) *migration.Runner {
	opts := []migration.Option{
		migration.WithLogger(logger.WithField("component", "migration")),
		migration.WithObserver(collector),
		migration.WithChecksumVerification(cfg.Database.VerifyChecksums),
	}
	if cfg.Backup.Enable {
		opts = append(opts, migration.WithBackuper(store.NewBackupManager(handle.Path(), cfg.Backup.MaxCount)))
	}
	return migration.NewRunner(opts...)
}

func writeMetrics(cfg *configs.Config, collector *metrics.Collector, logger *logrus.Entry) {
	if err := collector.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		logger.WithError(err).Warn("failed to export metrics")
	}
}

// StoreConfig 把配置转换为 store.Config
func StoreConfig(cfg *configs.Config) store.Config {
	storeCfg := store.DefaultConfig(cfg.DBPath())
	storeCfg.BusyTimeout = time.Duration(cfg.Database.BusyTimeoutMs) * time.Millisecond
	storeCfg.JournalMode = cfg.Database.JournalMode
	storeCfg.Synchronous = cfg.Database.Synchronous
	storeCfg.ForeignKeys = cfg.Database.ForeignKeys
	return storeCfg
}

// Invoke 调用已注册的命令
func (a *App) Invoke(ctx context.Context, name string, args ...string) (string, error) {
	return a.commands.Invoke(ctx, name, args...)
}

// Commands 返回已注册的命令名
func (a *App) Commands() []string {
	return a.commands.Names()
}

// Result 返回启动时的迁移结果
func (a *App) Result() *migration.Result {
	return a.result
}

// Store 返回数据库句柄
func (a *App) Store() *store.Handle {
	return a.store
}

// Status 返回当前迁移状态
func (a *App) Status(ctx context.Context) (*migration.Status, error) {
	return migration.NewRunner(migration.WithLogger(a.logger)).Status(ctx, a.store, a.migrations)
}

// Close 释放数据库与租约，可重复调用
func (a *App) Close() error {
	err := a.store.Close()
	a.logger.Debug("application closed")
	return err
}

// Inspect 打开数据库并报告迁移状态，不执行任何迁移
func Inspect(ctx context.Context, cfg *configs.Config, opts ...Option) (*migration.Status, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if err := cfg.Verify(); err != nil {
		return nil, err
	}

	migrations := o.migrations
	if migrations == nil {
		var err error
		if migrations, err = lending.Migrations(); err != nil {
			return nil, err
		}
	}

	// 数据库不存在时不创建，全部迁移视为待执行
	if _, err := os.Stat(cfg.DBPath()); errors.Is(err, os.ErrNotExist) {
		if err := migration.Validate(migrations); err != nil {
			return nil, err
		}
		return migration.NewStatus(nil, migrations), nil
	}

	handle, err := store.Open(ctx, StoreConfig(cfg))
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	return migration.NewRunner().Status(ctx, handle, migrations)
}

// ErrNoBackup 没有可用于恢复的备份
var ErrNoBackup = errors.New("no backup available")

// RestoreBackup 用备份替换数据库。backupPath 为空时使用最新的备份，返回实际使用的备份路径
func RestoreBackup(ctx context.Context, cfg *configs.Config, backupPath string) (string, error) {
	if err := cfg.Verify(); err != nil {
		return "", err
	}
	if backupPath == "" {
		latest, err := store.NewBackupManager(cfg.DBPath(), cfg.Backup.MaxCount).LatestBackup()
		if err != nil {
			return "", err
		}
		if latest == "" {
			return "", fmt.Errorf("%w in %s", ErrNoBackup, cfg.AppDataPath)
		}
		backupPath = latest
	}
	if err := store.Restore(ctx, cfg.DBPath(), backupPath); err != nil {
		return "", err
	}
	return backupPath, nil
}
