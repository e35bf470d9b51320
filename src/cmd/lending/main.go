package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/lending-desk/lending/src/app"
	"github.com/lending-desk/lending/src/cmd/lending/internal/flag"
	"github.com/lending-desk/lending/src/configs"
	"github.com/lending-desk/lending/src/consts"
	"github.com/lending-desk/lending/src/log"
	"github.com/lending-desk/lending/src/pkg/migration"
	appsentry "github.com/lending-desk/lending/src/pkg/sentry"
	"github.com/lending-desk/lending/src/pkg/store"
)

var (
	// SentryDSN 编译时注入：-ldflags="-X main.SentryDSN=your_dsn"
	SentryDSN = ""
)

func getConfig() (*configs.Config, error) {
	var config *configs.Config
	if *flag.Conf != "" {
		c, err := configs.NewConfigWithFile(*flag.Conf)
		if err != nil {
			return nil, err
		}
		config = c
	} else if c, err := getConfigBesidesExecutable(); err == nil {
		config = c
	} else {
		config = configs.NewConfig()
	}
	flag.ApplyTo(config)
	if config.Sentry.DSN == "" && SentryDSN != "" {
		config.Sentry.Enable = true
		config.Sentry.DSN = SentryDSN
	}
	return config, config.Verify()
}

func getConfigBesidesExecutable() (*configs.Config, error) {
	exePath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return configs.NewConfigWithFile(filepath.Join(filepath.Dir(exePath), "config.yml"))
}

func main() {
	os.Exit(run())
}

func run() int {
	// .env 不存在时静默跳过
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
	}

	cmd := flag.Parse(os.Args[1:])
	if cmd == flag.CmdConfigInit {
		return initConfig()
	}

	config, err := getConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	if config.Log.OutPutFolder != "" {
		if err := os.MkdirAll(config.Log.OutPutFolder, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log folder: %v\n", err)
			return 1
		}
	}
	logger, closeLog, err := log.New(config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	defer closeLog()

	if config.Sentry.Enable {
		if err := appsentry.Init(config.Sentry.DSN, config.Sentry.Environment, consts.Version()); err != nil {
			logger.WithError(err).Warn("failed to init sentry")
		}
	}
	defer appsentry.Flush(2 * time.Second)
	defer appsentry.Recover()

	info := consts.GetAppInfo()
	logger.WithFields(logrus.Fields{
		"version":    info.AppVersion,
		"git_hash":   info.GitHash,
		"build_time": info.BuildTime,
		"platform":   info.Platform,
		"go_version": info.GoVersion,
		"pid":        info.Pid,
		"command":    cmd,
	}).Info("lending-desk starting")
	appsentry.SetTag("platform", info.Platform)
	appsentry.SetTag("go_version", info.GoVersion)
	appsentry.SetTag("git_hash", info.GitHash)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, cmd, config, logger); err != nil {
		logger.WithError(err).Error("command failed")
		appsentry.CaptureException(err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, cmd string, config *configs.Config, logger *logrus.Logger) error {
	switch cmd {
	case flag.CmdRun:
		return serve(ctx, config, logger)
	case flag.CmdMigrate:
		return migrate(ctx, config)
	case flag.CmdStatus:
		return status(ctx, config)
	case flag.CmdGreet:
		return greet(ctx, config)
	case flag.CmdBackupList:
		return listBackups(config)
	case flag.CmdBackupRestore:
		return restore(ctx, config, logger)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func serve(ctx context.Context, config *configs.Config, logger *logrus.Logger) error {
	a, err := app.Start(ctx, config)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Infof("ready, schema version %d, commands: %v", a.Result().ToVersion, a.Commands())
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func migrate(ctx context.Context, config *configs.Config) error {
	a, err := app.Start(ctx, config)
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.Result()
	fmt.Printf("schema version %d -> %d, applied %v\n", result.FromVersion, result.ToVersion, result.Applied)
	if result.BackupPath != "" {
		fmt.Printf("backup: %s\n", result.BackupPath)
	}
	return nil
}

func status(ctx context.Context, config *configs.Config) error {
	st, err := app.Inspect(ctx, config)
	if err != nil {
		return err
	}
	printStatus(st)
	return nil
}

func printStatus(st *migration.Status) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "current\t%d\n", st.CurrentVersion)
	fmt.Fprintf(w, "latest\t%d\n", st.LatestVersion)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tDESCRIPTION")
	for _, m := range st.Applied {
		fmt.Fprintf(w, "%d\tapplied\t%s\t%s\n", m.Version, m.AppliedAt.Local().Format(time.DateTime), m.Description)
	}
	for _, m := range st.Pending {
		fmt.Fprintf(w, "%d\tpending\t-\t%s\n", m.Version, m.Description)
	}
}

func greet(ctx context.Context, config *configs.Config) error {
	a, err := app.Start(ctx, config)
	if err != nil {
		return err
	}
	defer a.Close()

	msg, err := a.Invoke(ctx, "greet", *flag.GreetName)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func listBackups(config *configs.Config) error {
	backups, err := store.NewBackupManager(config.DBPath(), config.Backup.MaxCount).ListBackups()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Println("no backups")
		return nil
	}
	for _, b := range backups {
		fmt.Println(b)
	}
	return nil
}

func restore(ctx context.Context, config *configs.Config, logger *logrus.Logger) error {
	backupPath, err := app.RestoreBackup(ctx, config, *flag.RestoreFile)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"db_path": config.DBPath(),
		"backup":  backupPath,
	}).Info("database restored")
	return nil
}

// initConfig 写出带注释的配置文件，命令行参数会一并写入
func initConfig() int {
	file := *flag.Conf
	if file == "" {
		file = flag.DefaultConfigFile
	}
	config := configs.NewConfig()
	flag.ApplyTo(config)
	if _, err := configs.InitFile(config, file, *flag.ConfigForce); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	fmt.Printf("config written to %s\n", file)
	return 0
}
