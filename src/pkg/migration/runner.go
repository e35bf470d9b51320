package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// Runner 把账本与迁移列表对齐：只执行版本号高于账本最高版本的迁移，
// 每个脚本与其账本记录在同一个事务中提交
type Runner struct {
	logger          *logrus.Entry
	observer        Observer
	backuper        Backuper
	verifyChecksums bool
	now             func() time.Time
}

// Option 配置 Runner
type Option func(*Runner)

// WithLogger 设置日志 Entry
func WithLogger(logger *logrus.Entry) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver 设置事件观察者
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithBackuper 升级已有数据库前创建备份
func WithBackuper(b Backuper) Option {
	return func(r *Runner) {
		r.backuper = b
	}
}

// WithChecksumVerification 是否校验已应用版本的脚本内容，默认开启
func WithChecksumVerification(enabled bool) Option {
	return func(r *Runner) {
		r.verifyChecksums = enabled
	}
}

// WithClock 替换时间来源（测试用）
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner 创建迁移执行器
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger:          logrus.WithField("component", "migration"),
		verifyChecksums: true,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply 使用默认配置执行迁移
func Apply(ctx context.Context, store Store, migrations []Migration) (*Result, error) {
	return NewRunner().Apply(ctx, store, migrations)
}

// Apply 将 store 升级到 migrations 中定义的最高版本。
// 失败时返回已填充的 Result（ToVersion 为最后一次成功提交的版本）和错误
func (r *Runner) Apply(ctx context.Context, store Store, migrations []Migration) (*Result, error) {
	if err := Validate(migrations); err != nil {
		return nil, err
	}

	conn, err := store.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %w", ErrStoreUnavailable, err)
	}
	defer conn.Close()

	applied, err := r.prepare(ctx, conn, migrations)
	if err != nil {
		return nil, err
	}

	current := highestApplied(applied)
	result := &Result{
		FromVersion: current,
		ToVersion:   current,
		RunID:       newRunID(),
	}

	var pending []Migration
	for _, m := range migrations {
		if m.Version <= current {
			result.Skipped++
			continue
		}
		pending = append(pending, m)
	}

	logger := r.logger.WithFields(logrus.Fields{
		"run_id":       result.RunID,
		"from_version": current,
	})

	if len(pending) == 0 {
		logger.WithField("version", current).Debug("database schema is up to date")
		r.reportVersion(current)
		return result, nil
	}

	if r.backuper != nil && current > 0 {
		backupPath, err := r.backuper.CreateBackup(ctx, conn)
		if err != nil {
			return result, fmt.Errorf("%w: %w", ErrBackupFailed, err)
		}
		result.BackupPath = backupPath
		if backupPath != "" {
			logger.WithField("backup_path", backupPath).Info("created database backup")
		}
	}

	logger.WithFields(logrus.Fields{
		"pending":        len(pending),
		"target_version": Latest(migrations),
	}).Info("applying database migrations")

	for _, m := range pending {
		elapsed, err := r.applyOne(ctx, conn, m, result.RunID)
		if err != nil {
			scriptErr := &ScriptError{Version: m.Version, Description: m.Description, Cause: err}
			logger.WithError(err).WithField("version", m.Version).Error("migration failed, aborting run")
			if r.observer != nil {
				r.observer.MigrationFailed(m, scriptErr)
			}
			r.reportVersion(result.ToVersion)
			return result, scriptErr
		}

		result.Applied = append(result.Applied, m.Version)
		result.ToVersion = m.Version
		logger.WithFields(logrus.Fields{
			"version":     m.Version,
			"description": m.Description,
			"elapsed":     elapsed,
		}).Info("migration applied")
		if r.observer != nil {
			r.observer.MigrationApplied(m, elapsed)
		}
	}

	logger.WithField("to_version", result.ToVersion).Info("database migration completed")
	r.reportVersion(result.ToVersion)
	return result, nil
}

// Status 报告已应用和待执行的迁移，不执行任何脚本
func (r *Runner) Status(ctx context.Context, store Store, migrations []Migration) (*Status, error) {
	if err := Validate(migrations); err != nil {
		return nil, err
	}

	conn, err := store.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %w", ErrStoreUnavailable, err)
	}
	defer conn.Close()

	// 只读：账本表不存在视为尚未应用任何版本
	exists, err := ledgerExists(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	var applied []AppliedMigration
	if exists {
		if applied, err = readLedger(ctx, conn); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
	}
	return NewStatus(applied, migrations), nil
}

// NewStatus 根据账本记录与迁移列表计算状态
func NewStatus(applied []AppliedMigration, migrations []Migration) *Status {
	status := &Status{
		CurrentVersion: highestApplied(applied),
		LatestVersion:  Latest(migrations),
		Applied:        applied,
	}
	for _, m := range migrations {
		if m.Version > status.CurrentVersion {
			status.Pending = append(status.Pending, m)
		}
	}
	return status
}

// prepare 创建账本并检查账本与迁移列表是否一致
func (r *Runner) prepare(ctx context.Context, conn *sql.Conn, migrations []Migration) ([]AppliedMigration, error) {
	if err := ensureLedger(ctx, conn); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	applied, err := readLedger(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	current := highestApplied(applied)
	if latest := Latest(migrations); current > latest {
		return nil, fmt.Errorf("%w: store is at version %d, latest known version is %d",
			ErrStoreAhead, current, latest)
	}

	recorded := make(map[uint]AppliedMigration, len(applied))
	for _, a := range applied {
		recorded[a.Version] = a
	}
	for _, m := range migrations {
		if m.Version > current {
			break
		}
		a, ok := recorded[m.Version]
		if !ok {
			r.logger.WithField("version", m.Version).Warn("version below current schema version is missing from ledger, skipping")
			continue
		}
		if r.verifyChecksums && a.Checksum != m.Checksum() {
			return nil, fmt.Errorf("%w: version %d was applied with checksum %s, script now has %s",
				ErrChecksumMismatch, m.Version, a.Checksum, m.Checksum())
		}
	}
	return applied, nil
}

// applyOne 在一个事务中执行脚本并写入账本
func (r *Runner) applyOne(ctx context.Context, conn *sql.Conn, m Migration, runID string) (time.Duration, error) {
	start := r.now()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, m.Script); err != nil {
		return 0, rollback(tx, fmt.Errorf("execute script: %w", err))
	}

	elapsed := r.now().Sub(start)
	if err := recordApplied(ctx, tx, m, r.now(), elapsed, runID); err != nil {
		return 0, rollback(tx, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, rollback(tx, fmt.Errorf("commit: %w", err))
	}
	return elapsed, nil
}

func rollback(tx *sql.Tx, cause error) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%w (rollback also failed: %v)", cause, err)
	}
	return cause
}

func (r *Runner) reportVersion(v uint) {
	if r.observer != nil {
		r.observer.SchemaVersion(v)
	}
}

func newRunID() string {
	return uuid.Must(uuid.NewV4()).String()
}
