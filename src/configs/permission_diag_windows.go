//go:build windows

package configs

// PermissionDiagnostics Windows 上只保留建议列表
type PermissionDiagnostics struct {
	Suggestions []string
}

// DiagnoseFilePermission Windows 上不执行 Unix 权限检查
func DiagnoseFilePermission(path string) *PermissionDiagnostics {
	return &PermissionDiagnostics{}
}

func (d *PermissionDiagnostics) FormatError() string {
	return ""
}
