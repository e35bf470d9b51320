package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// LeaseFileExtension 租约文件扩展名
const LeaseFileExtension = ".lock"

// ErrLocked 数据库已被其他进程（或同一进程中的其他 Handle）持有
var ErrLocked = errors.New("database is locked by another process")

// LeaseInfo 写入租约文件的持有者信息
type LeaseInfo struct {
	DBPath     string `json:"db_path"`
	StartTime  string `json:"start_time"`
	PID        int    `json:"pid"`
	AppVersion string `json:"app_version,omitempty"`
}

// Lease 数据库文件的独占租约
type Lease struct {
	path string
	file *os.File
}

// LeasePath 返回数据库对应的租约文件路径
func LeasePath(dbPath string) string {
	return dbPath + LeaseFileExtension
}

// AcquireLease 以非阻塞方式获取 dbPath 的独占锁。锁被占用时返回包装 ErrLocked 的错误，
// 错误信息包含持有者的 PID 以及该进程是否仍在运行
func AcquireLease(dbPath, appVersion string) (*Lease, error) {
	path := LeasePath(dbPath)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lease file: %w", err)
	}

	if err := lockFile(f); err != nil {
		f.Close()
		if errors.Is(err, errWouldBlock) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, describeHolder(dbPath))
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	l := &Lease{path: path, file: f}
	info := LeaseInfo{
		DBPath:     dbPath,
		StartTime:  time.Now().Format(time.RFC3339),
		PID:        os.Getpid(),
		AppVersion: appVersion,
	}
	if err := l.write(info); err != nil {
		l.Release()
		return nil, err
	}
	return l, nil
}

func (l *Lease) write(info LeaseInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lease info: %w", err)
	}
	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate lease file: %w", err)
	}
	if _, err := l.file.WriteAt(data, 0); err != nil {
		return fmt.Errorf("failed to write lease file: %w", err)
	}
	return l.file.Sync()
}

// Release 清空租约文件并解锁。文件本身保留，删除会与其他进程的加锁产生竞争
func (l *Lease) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	truncErr := l.file.Truncate(0)
	unlockErr := unlockFile(l.file)
	closeErr := l.file.Close()
	l.file = nil
	return errors.Join(truncErr, unlockErr, closeErr)
}

// ReadLeaseInfo 读取租约文件中的持有者信息。租约未被持有时文件为空，返回 nil
func ReadLeaseInfo(dbPath string) (*LeaseInfo, error) {
	f, err := os.Open(LeasePath(dbPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lease file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read lease file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var info LeaseInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lease info: %w", err)
	}
	return &info, nil
}

func describeHolder(dbPath string) string {
	info, err := ReadLeaseInfo(dbPath)
	if err != nil || info == nil {
		return "holder unknown"
	}
	state := "not running"
	if p, err := process.NewProcess(int32(info.PID)); err == nil {
		if name, err := p.Name(); err == nil {
			state = fmt.Sprintf("running as %s", name)
		} else {
			state = "running"
		}
	}
	return fmt.Sprintf("held since %s by PID %d (%s)", info.StartTime, info.PID, state)
}
