// Package lending 定义借贷数据库（lending.db）的结构演进
package lending

import (
	"fmt"

	"github.com/lending-desk/lending/src/pkg/migration"
)

// DBFile 数据库文件名
const DBFile = "lending.db"

// Migrations 返回按版本排序的全部迁移
func Migrations() ([]migration.Migration, error) {
	migrations, err := migration.Load(MigrationSource())
	if err != nil {
		return nil, fmt.Errorf("failed to load lending migrations: %w", err)
	}
	if err := migration.Validate(migrations); err != nil {
		return nil, err
	}
	return migrations, nil
}
