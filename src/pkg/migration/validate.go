package migration

import "fmt"

// Validate 在执行任何脚本之前检查迁移列表：
// 版本号必须为正且严格递增（因此唯一），方向必须为 Up
func Validate(migrations []Migration) error {
	var prev uint
	for i, m := range migrations {
		if m.Version == 0 || (i > 0 && m.Version <= prev) {
			return &OrderingError{Index: i, Previous: prev, Version: m.Version}
		}
		if m.Direction != Up {
			return fmt.Errorf("%w: version %d has direction %s", ErrUnsupportedDirection, m.Version, m.Direction)
		}
		prev = m.Version
	}
	return nil
}

// Latest 返回定义的最高版本，空列表返回 0
func Latest(migrations []Migration) uint {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
