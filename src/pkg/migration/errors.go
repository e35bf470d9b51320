package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderingViolation 迁移列表版本号不是严格递增或存在重复
	ErrOrderingViolation = errors.New("migration ordering violation")
	// ErrUnsupportedDirection 迁移方向不是 Up
	ErrUnsupportedDirection = errors.New("unsupported migration direction")
	// ErrScriptFailed 脚本执行或提交失败
	ErrScriptFailed = errors.New("migration script failed")
	// ErrStoreUnavailable 无法打开或创建数据库
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrStoreAhead 数据库版本高于程序定义的最高版本（被更新的版本写入过）
	ErrStoreAhead = errors.New("store schema is newer than known migrations")
	// ErrChecksumMismatch 已应用版本的脚本内容被修改
	ErrChecksumMismatch = errors.New("applied migration checksum mismatch")
	// ErrBackupFailed 迁移前备份失败
	ErrBackupFailed = errors.New("pre-migration backup failed")
)

// OrderingError 描述迁移列表中第一个违反顺序的位置
type OrderingError struct {
	Index    int
	Previous uint
	Version  uint
}

func (e *OrderingError) Error() string {
	if e.Index == 0 {
		return fmt.Sprintf("%v: migration at index 0 has version %d, versions must be positive",
			ErrOrderingViolation, e.Version)
	}
	if e.Version == e.Previous {
		return fmt.Sprintf("%v: duplicate version %d at index %d", ErrOrderingViolation, e.Version, e.Index)
	}
	return fmt.Sprintf("%v: version %d at index %d does not follow version %d",
		ErrOrderingViolation, e.Version, e.Index, e.Previous)
}

func (e *OrderingError) Is(target error) bool {
	return target == ErrOrderingViolation
}

// ScriptError 某个版本的脚本执行或提交失败
type ScriptError struct {
	Version     uint
	Description string
	Cause       error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%v: version %d (%s): %v", ErrScriptFailed, e.Version, e.Description, e.Cause)
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}

func (e *ScriptError) Is(target error) bool {
	return target == ErrScriptFailed
}
