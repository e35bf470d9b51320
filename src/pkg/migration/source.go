package migration

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Load 从迁移源读取迁移列表
func Load(src MigrationSource) ([]Migration, error) {
	fsys, err := src.GetFS()
	if err != nil {
		return nil, fmt.Errorf("failed to get migrations fs: %w", err)
	}
	subDir := src.GetSubDir()
	if subDir == "" {
		subDir = "."
	}
	return LoadFS(fsys, subDir)
}

// LoadFS 读取 dir 下形如 {version}_{description}.up.sql 的文件，按版本升序返回。
// 不符合命名规则的文件会被忽略
func LoadFS(fsys fs.FS, dir string) ([]Migration, error) {
	driver, err := iofs.New(fsys, dir)
	if err != nil {
		var dup source.ErrDuplicateMigration
		if errors.As(err, &dup) {
			return nil, fmt.Errorf("%w: %w", ErrOrderingViolation, err)
		}
		return nil, fmt.Errorf("failed to create iofs source: %w", err)
	}
	defer driver.Close()

	version, err := driver.First()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read first migration: %w", err)
	}

	var migrations []Migration
	for {
		m, err := readUp(driver.ReadUp, version)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, m)

		next, err := driver.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find migration after version %d: %w", version, err)
		}
		version = next
	}
	return migrations, nil
}

func readUp(read func(uint) (io.ReadCloser, string, error), version uint) (Migration, error) {
	r, identifier, err := read(version)
	if errors.Is(err, fs.ErrNotExist) {
		return Migration{}, fmt.Errorf("%w: version %d has no up script", ErrUnsupportedDirection, version)
	}
	if err != nil {
		return Migration{}, fmt.Errorf("failed to open migration %d: %w", version, err)
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		return Migration{}, fmt.Errorf("failed to read migration %d: %w", version, err)
	}
	return Migration{
		Version:     version,
		Description: strings.ReplaceAll(identifier, "_", " "),
		Script:      string(body),
		Direction:   Up,
	}, nil
}
