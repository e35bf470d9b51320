// Package store 以独占方式打开本地 SQLite 数据库文件。
//
// 一个数据库文件同一时间只允许一个 Handle 持有：租约文件（<db>.lock）上的
// 操作系统咨询锁保证进程间互斥，连接池上限为 1 保证进程内只有一个写者。
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/lending-desk/lending/src/pkg/migration"
)

const driverName = "sqlite"

var (
	validJournalModes = map[string]bool{
		"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true,
	}
	validSynchronous = map[string]bool{
		"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true,
	}
)

// Config 数据库打开参数
type Config struct {
	Path        string
	BusyTimeout time.Duration
	JournalMode string
	Synchronous string
	ForeignKeys bool
	// AppVersion 写入租约文件，便于排查是哪个版本持有数据库
	AppVersion string
}

// DefaultConfig 返回 path 的默认配置
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		BusyTimeout: 5 * time.Second,
		JournalMode: "WAL",
		Synchronous: "NORMAL",
		ForeignKeys: true,
	}
}

// Validate 检查配置是否合法，journal mode 与 synchronous 不区分大小写
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return errors.New("database path is empty")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busy timeout must not be negative: %s", c.BusyTimeout)
	}
	c.JournalMode = strings.ToUpper(c.JournalMode)
	if c.JournalMode != "" && !validJournalModes[c.JournalMode] {
		return fmt.Errorf("invalid journal mode: %q", c.JournalMode)
	}
	c.Synchronous = strings.ToUpper(c.Synchronous)
	if c.Synchronous != "" && !validSynchronous[c.Synchronous] {
		return fmt.Errorf("invalid synchronous mode: %q", c.Synchronous)
	}
	return nil
}

func (c Config) dsn() string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	if c.JournalMode != "" {
		params.Add("_pragma", fmt.Sprintf("journal_mode(%s)", c.JournalMode))
	}
	if c.Synchronous != "" {
		params.Add("_pragma", fmt.Sprintf("synchronous(%s)", c.Synchronous))
	}
	if c.ForeignKeys {
		params.Add("_pragma", "foreign_keys(1)")
	}
	params.Set("_txlock", "immediate")
	return "file:" + filepath.ToSlash(c.Path) + "?" + params.Encode()
}

// Handle 一个已打开的数据库，持有租约直到 Close
type Handle struct {
	path   string
	db     *sql.DB
	lease  *Lease
	logger *logrus.Entry

	closeOnce sync.Once
	closeErr  error
}

// Open 获取租约并打开数据库。任何一步失败都会释放已获取的资源，
// 返回的错误包装 migration.ErrStoreUnavailable
func Open(ctx context.Context, cfg Config) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", migration.ErrStoreUnavailable, err)
	}

	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve path %s: %w", migration.ErrStoreUnavailable, cfg.Path, err)
	}
	cfg.Path = path

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: create directory: %w", migration.ErrStoreUnavailable, err)
	}

	lease, err := AcquireLease(path, cfg.AppVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", migration.ErrStoreUnavailable, err)
	}

	logger := logrus.WithFields(logrus.Fields{
		"component": "store",
		"db_path":   path,
	})

	db, err := sql.Open(driverName, cfg.dsn())
	if err != nil {
		lease.Release()
		return nil, fmt.Errorf("%w: open %s: %w", migration.ErrStoreUnavailable, path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := probe(ctx, db); err != nil {
		db.Close()
		lease.Release()
		return nil, fmt.Errorf("%w: %s: %w", migration.ErrStoreUnavailable, path, err)
	}

	logger.WithFields(logrus.Fields{
		"journal_mode": cfg.JournalMode,
		"synchronous":  cfg.Synchronous,
	}).Debug("database opened")

	return &Handle{
		path:   path,
		db:     db,
		lease:  lease,
		logger: logger,
	}, nil
}

// probe 读取 sqlite_master，非数据库文件会在这里报错
func probe(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master`).Scan(&n); err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	return nil
}

// Conn 返回独占连接。连接池上限为 1，调用方必须尽快关闭
func (h *Handle) Conn(ctx context.Context) (*sql.Conn, error) {
	return h.db.Conn(ctx)
}

// DB 返回底层连接池
func (h *Handle) DB() *sql.DB {
	return h.db
}

// Path 返回数据库文件的绝对路径
func (h *Handle) Path() string {
	return h.path
}

// Close 关闭数据库并释放租约，可重复调用
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		dbErr := h.db.Close()
		leaseErr := h.lease.Release()
		h.closeErr = errors.Join(dbErr, leaseErr)
		h.logger.Debug("database closed")
	})
	return h.closeErr
}
