// Package flag 定义命令行参数，解析结果保存在包级变量中
package flag

import (
	"path/filepath"

	"github.com/alecthomas/kingpin"

	"github.com/lending-desk/lending/src/configs"
	"github.com/lending-desk/lending/src/consts"
)

const (
	CmdRun           = "run"
	CmdMigrate       = "migrate"
	CmdStatus        = "status"
	CmdGreet         = "greet"
	CmdBackupList    = "backup list"
	CmdBackupRestore = "backup restore"
	CmdConfigInit    = "config init"
)

var (
	app = kingpin.New(consts.AppName, "Local-first lending ledger.")

	Conf        = app.Flag("config", "Config file.").Short('c').Default("").String()
	DB          = app.Flag("db", "数据库文件路径，备份存放在同一目录").Envar("LENDING_DB").Default("").String()
	Debug       = app.Flag("debug", "Enable debug mode.").Default("false").Bool()
	LogDir      = app.Flag("log-dir", "日志输出目录").Default("").String()
	SentryDSN   = app.Flag("sentry-dsn", "Sentry DSN，留空则不上报").Envar("SENTRY_DSN").Default("").String()
	MetricsFile = app.Flag("metrics-file", "迁移指标输出文件（prometheus textfile 格式）").Default("").String()
	NoBackup    = app.Flag("no-backup", "升级前不备份数据库").Default("false").Bool()

	runCmd     = app.Command(CmdRun, "Migrate the database and keep serving until interrupted.").Default()
	migrateCmd = app.Command(CmdMigrate, "Migrate the database to the latest schema and exit.")
	statusCmd  = app.Command(CmdStatus, "Show applied and pending migrations.")

	greetCmd  = app.Command(CmdGreet, "Greet someone.")
	GreetName = greetCmd.Arg("name", "Name to greet.").Required().String()

	backupCmd        = app.Command("backup", "Manage database backups.")
	backupListCmd    = backupCmd.Command("list", "List backups, newest first.")
	backupRestoreCmd = backupCmd.Command("restore", "Replace the database with a backup. The application must not be running.")
	RestoreFile      = backupRestoreCmd.Arg("file", "Backup file path, defaults to the newest backup.").Default("").String()

	configCmd     = app.Command("config", "Manage the config file.")
	configInitCmd = configCmd.Command("init", "Write a commented config file (to --config, or config.yml in the working directory).")
	ConfigForce   = configInitCmd.Flag("force", "覆盖已存在的配置文件").Default("false").Bool()
)

// DefaultConfigFile config init 未指定 --config 时写入的文件
const DefaultConfigFile = "config.yml"

// Parse 解析命令行，返回选中的子命令全名
func Parse(args []string) string {
	app.Version(consts.Version())
	return kingpin.MustParse(app.Parse(args))
}

// ApplyTo 用命令行参数覆盖配置
func ApplyTo(config *configs.Config) {
	if *DB != "" {
		config.AppDataPath = filepath.Dir(*DB)
		config.Database.File = filepath.Base(*DB)
	}
	if *Debug {
		config.Debug = true
	}
	if *LogDir != "" {
		config.Log.OutPutFolder = *LogDir
	}
	if *SentryDSN != "" {
		config.Sentry.Enable = true
		config.Sentry.DSN = *SentryDSN
	}
	if *MetricsFile != "" {
		config.Metrics.TextfilePath = *MetricsFile
	}
	if *NoBackup {
		config.Backup.Enable = false
	}
}
