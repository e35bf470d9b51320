package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lending-desk/lending/src/configs"
)

const logFileBase = "lending"

// New 根据配置设置全局 logrus 标准 logger。
// 返回的 close 函数关闭打开的日志文件，程序退出前调用
func New(cfg *configs.Config) (*logrus.Logger, func(), error) {
	logLevel := logrus.InfoLevel
	if cfg.Debug {
		logLevel = logrus.DebugLevel
	}

	writers := []io.Writer{os.Stderr}
	var closers []io.Closer

	outputFolder := cfg.Log.OutPutFolder
	if cfg.Log.SaveEveryLog || cfg.Log.SaveLastLog {
		if _, err := os.Stat(outputFolder); err != nil {
			return nil, nil, fmt.Errorf("failed to determine log output folder %s: %w", outputFolder, err)
		}
	}
	if cfg.Log.SaveEveryLog {
		runID := time.Now().Format("run-2006-01-02-15-04-05")
		logLocation := filepath.Join(outputFolder, runID+".log")
		logFile, err := os.OpenFile(logLocation, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s for output: %w", logLocation, err)
		}
		writers = append(writers, logFile)
		closers = append(closers, logFile)
	}
	if cfg.Log.SaveLastLog {
		// 按天滚动写入日志
		rot := newDailyRotatingWriter(outputFolder, logFileBase, cfg.Log.RotateDays)
		writers = append(writers, rot)
		closers = append(closers, rot)
	}

	logger := logrus.StandardLogger()
	logger.SetOutput(io.MultiWriter(writers...))
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetReportCaller(cfg.Debug)
	logger.SetLevel(logLevel)

	closeFn := func() {
		logger.SetOutput(os.Stderr)
		for _, c := range closers {
			_ = c.Close()
		}
	}
	return logger, closeFn, nil
}

// dailyRotatingWriter 按“天”切分日志文件，文件名形如：<base>-YYYY-MM-DD.log
// 可选保留最近 N 天（retentionDays<=0 时不清理）。
type dailyRotatingWriter struct {
	dir           string
	base          string
	retentionDays int
	now           func() time.Time

	mu     sync.Mutex
	curDay string
	file   *os.File
}

func newDailyRotatingWriter(dir, base string, retentionDays int) *dailyRotatingWriter {
	return &dailyRotatingWriter{dir: dir, base: base, retentionDays: retentionDays, now: time.Now}
}

func (w *dailyRotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateIfNeededLocked(w.now()); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

func (w *dailyRotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *dailyRotatingWriter) rotateIfNeededLocked(now time.Time) error {
	day := now.Format("2006-01-02")
	if w.file != nil && day == w.curDay {
		return nil
	}
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	f, err := os.OpenFile(w.filenameForDay(day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.curDay = day
	w.cleanupLocked(now)
	return nil
}

func (w *dailyRotatingWriter) filenameForDay(day string) string {
	return filepath.Join(w.dir, w.base+"-"+day+".log")
}

func (w *dailyRotatingWriter) cleanupLocked(now time.Time) {
	if w.retentionDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -w.retentionDays)
	files, _ := filepath.Glob(filepath.Join(w.dir, w.base+"-*.log"))
	for _, f := range files {
		// 期望格式：<base>-YYYY-MM-DD.log
		dateStr := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(f), w.base+"-"), ".log")
		if t, err := time.Parse("2006-01-02", dateStr); err == nil && t.Before(cutoff) {
			_ = os.Remove(f)
		}
	}
}
