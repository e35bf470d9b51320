//go:build !windows

package configs

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// PermissionDiagnostics 文件（或目录）的权限诊断信息
type PermissionDiagnostics struct {
	FilePath    string
	FileExists  bool
	CanRead     bool
	CanWrite    bool
	FileMode    os.FileMode
	OwnerUID    uint32
	OwnerGID    uint32
	CurrentUID  int
	CurrentGID  int
	Suggestions []string
}

// DiagnoseFilePermission 诊断文件权限问题，path 为目录时检查目录本身
func DiagnoseFilePermission(path string) *PermissionDiagnostics {
	diag := &PermissionDiagnostics{
		FilePath:   path,
		CurrentUID: os.Getuid(),
		CurrentGID: os.Getgid(),
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		diag.Suggestions = append(diag.Suggestions,
			fmt.Sprintf("文件 %s 不存在，请检查路径是否正确", path))
		return diag
	}
	if err != nil {
		diag.Suggestions = append(diag.Suggestions, fmt.Sprintf("无法获取文件信息: %v", err))
		return diag
	}

	diag.FileExists = true
	diag.FileMode = info.Mode()
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		diag.OwnerUID = stat.Uid
		diag.OwnerGID = stat.Gid
	}

	if info.IsDir() {
		diag.CanRead = unix.Access(path, unix.R_OK) == nil
		diag.CanWrite = unix.Access(path, unix.W_OK) == nil
	} else {
		if f, err := os.OpenFile(path, os.O_RDONLY, 0); err == nil {
			diag.CanRead = true
			f.Close()
		}
		if f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0); err == nil {
			diag.CanWrite = true
			f.Close()
		}
	}

	diag.generateSuggestions()
	return diag
}

func (d *PermissionDiagnostics) generateSuggestions() {
	if d.CanRead && d.CanWrite {
		return
	}
	owner := fmt.Sprintf("所有者 UID:GID = %d:%d，当前进程 UID:GID = %d:%d",
		d.OwnerUID, d.OwnerGID, d.CurrentUID, d.CurrentGID)
	if !d.CanRead {
		d.Suggestions = append(d.Suggestions,
			fmt.Sprintf("无法读取 %s，当前权限: %v，%s", d.FilePath, d.FileMode, owner))
	}
	if !d.CanWrite {
		d.Suggestions = append(d.Suggestions,
			fmt.Sprintf("无法写入 %s，当前权限: %v，%s", d.FilePath, d.FileMode, owner))
	}
	if d.OwnerUID == 0 && d.CurrentUID != 0 {
		d.Suggestions = append(d.Suggestions, "文件属于 root 用户，但程序以非 root 用户运行")
	}
}

// FormatError 格式化权限诊断为用户友好的错误信息
func (d *PermissionDiagnostics) FormatError() string {
	if len(d.Suggestions) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n========== 权限诊断信息 ==========\n")
	for _, suggestion := range d.Suggestions {
		sb.WriteString(suggestion)
		sb.WriteString("\n")
	}
	sb.WriteString("===================================\n")
	return sb.String()
}
