//go:generate go run go.uber.org/mock/mockgen -package migration -destination mock_test.go github.com/lending-desk/lending/src/pkg/migration Backuper,Observer

package migration

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"io/fs"
	"time"
)

// Direction 迁移方向，目前只定义了 Up
type Direction int

const (
	// Up 升级迁移
	Up Direction = iota
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	default:
		return "unknown"
	}
}

// Migration 一个版本化的迁移脚本，创建后不可修改
type Migration struct {
	// Version 版本号，正整数，严格递增且唯一，决定执行顺序
	Version uint
	// Description 描述，仅用于展示
	Description string
	// Script 在同一个事务中执行的 SQL 语句
	Script string
	// Direction 迁移方向
	Direction Direction
}

// Checksum 返回脚本内容的 SHA-256（小写十六进制）
func (m Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.Script))
	return hex.EncodeToString(sum[:])
}

// Store 迁移执行器需要的存储。*sql.DB 与 store.Handle 均满足该接口
type Store interface {
	// Conn 返回一个独占连接，调用方负责关闭
	Conn(ctx context.Context) (*sql.Conn, error)
}

// Backuper 在升级已有数据库前创建快照
type Backuper interface {
	// CreateBackup 使用给定连接创建备份，返回备份文件路径
	CreateBackup(ctx context.Context, conn *sql.Conn) (string, error)
}

// Observer 接收迁移执行过程中的事件（例如用于指标统计）
type Observer interface {
	MigrationApplied(m Migration, elapsed time.Duration)
	MigrationFailed(m Migration, err error)
	SchemaVersion(version uint)
}

// MigrationSource 迁移源（SQL文件来源）
type MigrationSource interface {
	// GetFS 返回迁移文件系统
	GetFS() (fs.FS, error)
	// GetSubDir 返回迁移文件在FS中的子目录（如果有）
	GetSubDir() string
	// IsEmbedded 返回迁移文件是否嵌入
	IsEmbedded() bool
}

// AppliedMigration 账本中的一条记录
type AppliedMigration struct {
	Version       uint
	Description   string
	Checksum      string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	// RunID 同一次 Apply 调用中应用的所有版本共享同一个 RunID
	RunID string
}

// Result 一次 Apply 调用的结果
type Result struct {
	// FromVersion 迁移前账本中的最高版本
	FromVersion uint
	// ToVersion 迁移后（或失败时最后一次成功提交后）的最高版本
	ToVersion uint
	// Applied 本次成功应用的版本，按执行顺序
	Applied []uint
	// Skipped 因版本号不大于 FromVersion 而跳过的迁移数量
	Skipped int
	// BackupPath 备份文件路径（如果有）
	BackupPath string
	// RunID 本次执行的标识
	RunID string
}

// Status 迁移状态，不执行任何脚本
type Status struct {
	// CurrentVersion 账本中的最高版本
	CurrentVersion uint
	// LatestVersion 定义的最高版本
	LatestVersion uint
	Applied       []AppliedMigration
	Pending       []Migration
}

// UpToDate 是否已经没有待执行的迁移
func (s *Status) UpToDate() bool {
	return len(s.Pending) == 0
}
