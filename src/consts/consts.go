package consts

import (
	"fmt"
	"os"
	"runtime"
)

const (
	AppName = "lending-desk"
)

// MinCompatibleVersion 本版本写入数据库后，能够打开该数据库的最低程序版本。
// 只有迁移使旧版本程序无法正确读写数据时才需要提升
const MinCompatibleVersion = "0.1.0"

type Info struct {
	AppName    string `json:"app_name"`
	AppVersion string `json:"app_version"`
	BuildTime  string `json:"build_time"`
	GitHash    string `json:"git_hash"`
	Pid        int    `json:"pid"`
	Platform   string `json:"platform"`
	GoVersion  string `json:"go_version"`
}

// 通过 -ldflags 在链接阶段注入
var (
	BuildTime  string
	AppVersion string
	GitHash    string
)

// GetAppInfo 返回应用信息。
// 必须使用函数而非变量，AppVersion 等字段在链接阶段才被注入
func GetAppInfo() Info {
	return Info{
		AppName:    AppName,
		AppVersion: Version(),
		BuildTime:  BuildTime,
		GitHash:    GitHash,
		Pid:        os.Getpid(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		GoVersion:  runtime.Version(),
	}
}

// Version 返回程序版本，未注入时为 dev
func Version() string {
	if AppVersion == "" {
		return "dev"
	}
	return AppVersion
}
