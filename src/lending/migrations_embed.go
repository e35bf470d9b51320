//go:build !dev

package lending

import (
	"embed"
	"io/fs"

	"github.com/lending-desk/lending/src/pkg/migration"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// migrationSource 借贷数据库迁移源（release模式）
type migrationSource struct{}

// GetFS 返回嵌入的迁移文件
func (s *migrationSource) GetFS() (fs.FS, error) {
	return embeddedMigrations, nil
}

func (s *migrationSource) GetSubDir() string {
	return "migrations"
}

func (s *migrationSource) IsEmbedded() bool {
	return true
}

// MigrationSource 获取借贷数据库迁移源
func MigrationSource() migration.MigrationSource {
	return &migrationSource{}
}
