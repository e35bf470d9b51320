package consts

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetAppInfo(t *testing.T) {
	saved := AppVersion
	defer func() { AppVersion = saved }()

	AppVersion = ""
	info := GetAppInfo()
	assert.Equal(t, AppName, info.AppName)
	assert.Equal(t, "dev", info.AppVersion)
	assert.Equal(t, os.Getpid(), info.Pid)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.Equal(t, runtime.Version(), info.GoVersion)

	AppVersion = "1.2.3"
	assert.Equal(t, "1.2.3", GetAppInfo().AppVersion)
}
