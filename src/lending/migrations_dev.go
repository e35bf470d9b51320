//go:build dev

package lending

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/lending-desk/lending/src/pkg/migration"
)

// migrationSource 借贷数据库迁移源（dev模式），修改 SQL 后无需重新编译
type migrationSource struct{}

// GetFS 返回源码目录下的迁移文件
func (s *migrationSource) GetFS() (fs.FS, error) {
	_, currentFile, _, _ := runtime.Caller(0)
	return os.DirFS(filepath.Join(filepath.Dir(currentFile), "migrations")), nil
}

func (s *migrationSource) GetSubDir() string {
	return "."
}

func (s *migrationSource) IsEmbedded() bool {
	return false
}

// MigrationSource 获取借贷数据库迁移源
func MigrationSource() migration.MigrationSource {
	return &migrationSource{}
}
