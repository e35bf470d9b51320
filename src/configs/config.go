package configs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Log struct {
	OutPutFolder string `yaml:"out_put_folder" json:"out_put_folder"`
	SaveLastLog  bool   `yaml:"save_last_log" json:"save_last_log"`
	SaveEveryLog bool   `yaml:"save_every_log" json:"save_every_log"`
	// RotateDays 指定按"天"为单位滚动日志时，最多保留的天数（<=0 表示不清理）
	RotateDays int `yaml:"rotate_days" json:"rotate_days"`
}

// Database 本地数据库配置
type Database struct {
	File            string `yaml:"file" json:"file"`
	BusyTimeoutMs   int    `yaml:"busy_timeout_ms" json:"busy_timeout_ms"`
	JournalMode     string `yaml:"journal_mode" json:"journal_mode"`
	Synchronous     string `yaml:"synchronous" json:"synchronous"`
	ForeignKeys     bool   `yaml:"foreign_keys" json:"foreign_keys"`
	VerifyChecksums bool   `yaml:"verify_checksums" json:"verify_checksums"`
}

// Backup 迁移前备份配置
type Backup struct {
	Enable   bool `yaml:"enable" json:"enable"`
	MaxCount int  `yaml:"max_count" json:"max_count"`
}

type Metrics struct {
	TextfilePath string `yaml:"textfile_path" json:"textfile_path"`
}

type Sentry struct {
	Enable      bool   `yaml:"enable" json:"enable"`
	DSN         string `yaml:"dsn" json:"dsn"`
	Environment string `yaml:"environment" json:"environment"`
}

type Config struct {
	File  string `yaml:"-" json:"-"`
	Debug bool   `yaml:"debug" json:"debug"`

	// 数据目录，数据库文件与备份都放在这里
	AppDataPath string `yaml:"app_data_path" json:"app_data_path"`

	Database Database `yaml:"database" json:"database"`
	Backup   Backup   `yaml:"backup" json:"backup"`
	Log      Log      `yaml:"log" json:"log"`
	Metrics  Metrics  `yaml:"metrics" json:"metrics"`
	Sentry   Sentry   `yaml:"sentry" json:"sentry"`
}

var defaultConfig = Config{
	Debug:       false,
	AppDataPath: "./.appdata",
	Database: Database{
		File:            "lending.db",
		BusyTimeoutMs:   5000,
		JournalMode:     "WAL",
		Synchronous:     "NORMAL",
		ForeignKeys:     true,
		VerifyChecksums: true,
	},
	Backup: Backup{
		Enable:   true,
		MaxCount: 5,
	},
	Log: Log{
		OutPutFolder: "./",
		SaveLastLog:  true,
		SaveEveryLog: false,
		RotateDays:   7,
	},
	Sentry: Sentry{
		Environment: "production",
	},
}

func NewConfig() *Config {
	config := defaultConfig
	return &config
}

// DBPath 数据库文件的完整路径
func (c *Config) DBPath() string {
	return filepath.Join(c.AppDataPath, c.Database.File)
}

// Verify will return an error when this config has problem.
func (c *Config) Verify() error {
	if c == nil {
		return fmt.Errorf("配置不存在")
	}
	if strings.TrimSpace(c.AppDataPath) == "" {
		return fmt.Errorf("app_data_path 不能为空")
	}
	if strings.TrimSpace(c.Database.File) == "" {
		return fmt.Errorf("database.file 不能为空")
	}
	if filepath.Base(c.Database.File) != c.Database.File {
		return fmt.Errorf(`database.file "%s" 只能是文件名，目录请通过 app_data_path 指定`, c.Database.File)
	}
	if c.Database.BusyTimeoutMs < 0 {
		return fmt.Errorf("database.busy_timeout_ms 不能为负数")
	}
	if c.Backup.Enable && c.Backup.MaxCount <= 0 {
		return fmt.Errorf("backup.max_count 必须大于 0")
	}
	if c.Sentry.Enable && strings.TrimSpace(c.Sentry.DSN) == "" {
		return fmt.Errorf("sentry 已启用但未配置 dsn")
	}
	return nil
}

func NewConfigWithBytes(b []byte) (*Config, error) {
	config := defaultConfig
	if err := yaml.Unmarshal(b, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func NewConfigWithFile(file string) (*Config, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		// 进行权限诊断，提供更详细的错误信息
		if diagInfo := DiagnoseFilePermission(file).FormatError(); diagInfo != "" {
			return nil, fmt.Errorf("can`t open file: %s%s", file, diagInfo)
		}
		return nil, fmt.Errorf("can`t open file: %s", file)
	}
	config, err := NewConfigWithBytes(b)
	if err != nil {
		return nil, err
	}
	config.File = file
	return config, nil
}

// ErrConfigExists 目标配置文件已存在
var ErrConfigExists = errors.New("config file already exists")

// InitFile 在 file 处写入带注释的配置。c 为 nil 时使用默认配置。
// 文件已存在且未指定 force 时返回 ErrConfigExists
func InitFile(c *Config, file string, force bool) (*Config, error) {
	if c == nil {
		c = NewConfig()
	}
	if !force {
		if _, err := os.Stat(file); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrConfigExists, file)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	c.File = file
	if err := c.Verify(); err != nil {
		return nil, err
	}
	if err := c.Marshal(); err != nil {
		return nil, fmt.Errorf("failed to write config %s: %w", file, err)
	}
	return c, nil
}

// Marshal 把配置写回 File，并附带字段注释
func (c *Config) Marshal() error {
	if c.File == "" {
		return errors.New("config path not set")
	}

	var node yaml.Node
	tempBytes, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(tempBytes, &node); err != nil {
		return err
	}

	DecorateConfigNode(&node)

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&node); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.File), 0755); err != nil {
		return err
	}
	return os.WriteFile(c.File, buf.Bytes(), 0644)
}
