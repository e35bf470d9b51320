package lending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	uuid "github.com/satori/go.uuid"
)

const (
	// MetaAppVersion 最近一次打开数据库的程序版本
	MetaAppVersion = "app_version"
	// MetaMinCompatibleVersion 能够打开该数据库的最低程序版本
	MetaMinCompatibleVersion = "min_compatible_version"
	// MetaDeviceID 匿名设备标识，用于错误上报
	MetaDeviceID = "device_id"
)

// ErrIncompatibleVersion 数据库要求的最低版本高于当前程序版本
var ErrIncompatibleVersion = errors.New("database requires a newer application version")

// DBTX *sql.DB、*sql.Conn 与 *sql.Tx 都满足该接口
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetMeta 读取 system_meta 中的值，不存在时返回空字符串
func GetMeta(ctx context.Context, db DBTX, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM system_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// SetMeta 写入或覆盖 system_meta 中的值
func SetMeta(ctx context.Context, db DBTX, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO system_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// RecordAppVersion 记录当前程序版本，并把最低兼容版本提升到 minCompatible。
// 已记录的最低兼容版本高于 appVersion 时返回 ErrIncompatibleVersion，不写入任何内容。
// 无法解析为语义化版本的值（例如开发构建）不参与比较
func RecordAppVersion(ctx context.Context, db DBTX, appVersion, minCompatible string) error {
	stored, err := GetMeta(ctx, db, MetaMinCompatibleVersion)
	if err != nil {
		return err
	}

	running, runningErr := semver.NewVersion(appVersion)
	storedMin, storedErr := semver.NewVersion(stored)
	if runningErr == nil && storedErr == nil && running.LessThan(storedMin) {
		return fmt.Errorf("%w: database requires %s, running %s", ErrIncompatibleVersion, storedMin, running)
	}

	if err := SetMeta(ctx, db, MetaAppVersion, appVersion); err != nil {
		return err
	}

	next := stored
	if wanted, err := semver.NewVersion(minCompatible); err == nil {
		if storedErr != nil || wanted.GreaterThan(storedMin) {
			next = wanted.Original()
		}
	}
	if next == "" || next == stored {
		return nil
	}
	return SetMeta(ctx, db, MetaMinCompatibleVersion, next)
}

// DeviceID 读取匿名设备标识，不存在时生成并保存（32 位十六进制）
func DeviceID(ctx context.Context, db DBTX) (string, error) {
	id, err := GetMeta(ctx, db, MetaDeviceID)
	if err != nil || id != "" {
		return id, err
	}
	id = strings.ReplaceAll(uuid.Must(uuid.NewV4()).String(), "-", "")
	if err := SetMeta(ctx, db, MetaDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}
