package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// BackupInfix 备份文件名中数据库文件名之后的部分：<db>.backup_<timestamp>
	BackupInfix = ".backup_"
	// BackupTimeLayout 备份时间戳格式，字典序与时间顺序一致
	BackupTimeLayout = "20060102_150405.000"
	// MaxBackupCount 默认保留的备份数量
	MaxBackupCount = 5
)

// BackupManager 迁移前的数据库快照
type BackupManager struct {
	dbPath   string
	maxCount int
	now      func() time.Time
}

// NewBackupManager 创建备份管理器，maxCount <= 0 时使用 MaxBackupCount
func NewBackupManager(dbPath string, maxCount int) *BackupManager {
	if maxCount <= 0 {
		maxCount = MaxBackupCount
	}
	return &BackupManager{
		dbPath:   dbPath,
		maxCount: maxCount,
		now:      time.Now,
	}
}

// CreateBackup 通过 VACUUM INTO 在 conn 上生成一致的快照。
// conn 不能处于事务中
func (m *BackupManager) CreateBackup(ctx context.Context, conn *sql.Conn) (string, error) {
	backupPath := m.dbPath + BackupInfix + m.now().Format(BackupTimeLayout)

	if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	quoted := strings.ReplaceAll(backupPath, "'", "''")
	if _, err := conn.ExecContext(ctx, `VACUUM INTO '`+quoted+`'`); err != nil {
		_ = m.RemoveBackup(backupPath)
		return "", fmt.Errorf("failed to create backup: %w", err)
	}

	// 清理失败不影响本次备份
	_ = m.CleanupOldBackups()

	return backupPath, nil
}

// RemoveBackup 删除备份文件
func (m *BackupManager) RemoveBackup(backupPath string) error {
	if backupPath == "" {
		return nil
	}
	if err := os.Remove(backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove backup: %w", err)
	}
	return nil
}

// ListBackups 列出所有备份文件，最新的在前
func (m *BackupManager) ListBackups() ([]string, error) {
	dir := filepath.Dir(m.dbPath)
	prefix := filepath.Base(m.dbPath) + BackupInfix

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i] > backups[j]
	})

	return backups, nil
}

// CleanupOldBackups 只保留最新的 maxCount 个备份
func (m *BackupManager) CleanupOldBackups() error {
	backups, err := m.ListBackups()
	if err != nil {
		return err
	}

	if len(backups) <= m.maxCount {
		return nil
	}

	for _, backup := range backups[m.maxCount:] {
		if err := m.RemoveBackup(backup); err != nil {
			return fmt.Errorf("%s: %w", backup, err)
		}
	}

	return nil
}

// LatestBackup 返回最新的备份文件，没有备份时返回空字符串
func (m *BackupManager) LatestBackup() (string, error) {
	backups, err := m.ListBackups()
	if err != nil {
		return "", err
	}
	if len(backups) == 0 {
		return "", nil
	}
	return backups[0], nil
}

// Restore 用备份替换数据库文件。需要获取租约，数据库被打开时会失败
func Restore(ctx context.Context, dbPath, backupPath string) error {
	if backupPath == "" {
		return fmt.Errorf("backup path is empty")
	}
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup file not found: %s", backupPath)
	}

	lease, err := AcquireLease(dbPath, "")
	if err != nil {
		return err
	}
	defer lease.Release()

	if err := ctx.Err(); err != nil {
		return err
	}

	tmp := dbPath + ".restore"
	if err := copyFile(backupPath, tmp); err != nil {
		return fmt.Errorf("failed to restore from backup: %w", err)
	}
	if err := os.Rename(tmp, dbPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace database: %w", err)
	}

	// 旧的 WAL 属于被替换的数据库，留着会在下次打开时被回放
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", dbPath+suffix, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		os.Remove(dst)
		return err
	}

	return dstFile.Sync()
}
