// Package sentry 提供 Sentry 错误监控的封装
// 用于收集启动失败与崩溃日志，上报前清理借款人等敏感数据
package sentry

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

var (
	initialized bool
	initMu      sync.RWMutex
)

// 敏感关键字列表，用于过滤敏感数据
var sensitiveKeywords = []string{
	"dsn", "password", "passwd", "secret", "token", "auth", "credential",
	"email", "phone", "address", "name",
}

var (
	sensitiveKVPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(quoteAll(sensitiveKeywords), "|") + `)\s*[=:]\s*[^\s,}"\]]+`)
	// 用户目录中可能包含真实姓名
	homeDirPattern = regexp.MustCompile(`(/home/|/Users/|\\Users\\)[^/\\\s]+`)
)

func quoteAll(words []string) []string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return quoted
}

// Init 初始化 Sentry SDK，dsn 为空时不做任何事
func Init(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
		BeforeSend:       beforeSendHook,
		SampleRate:       1.0,
	})
	if err != nil {
		return err
	}

	initMu.Lock()
	initialized = true
	initMu.Unlock()
	return nil
}

// IsInitialized 返回 Sentry 是否已初始化
func IsInitialized() bool {
	initMu.RLock()
	defer initMu.RUnlock()
	return initialized
}

// SetDeviceID 设置匿名设备标识，便于区分同一台机器上的多次上报
func SetDeviceID(id string) {
	if !IsInitialized() || id == "" {
		return
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{ID: id})
	})
}

// SetTag 在当前 scope 上设置标签
func SetTag(key, value string) {
	if !IsInitialized() {
		return
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag(key, value)
	})
}

// Flush 刷新所有待发送事件（程序退出前调用）
func Flush(timeout time.Duration) {
	if !IsInitialized() {
		return
	}
	sentry.Flush(timeout)
}

// Recover 用于 goroutine 的 panic 恢复，应在 goroutine 开始时使用 defer 调用。
// 必须先调用 recover()，再检查 Sentry 状态，否则 panic 不会被捕获
func Recover() {
	err := recover()
	if err == nil {
		return
	}
	if IsInitialized() {
		if hub := sentry.CurrentHub(); hub != nil {
			hub.Recover(err)
		}
	}
}

// CaptureException 捕获异常
func CaptureException(err error) {
	if !IsInitialized() || err == nil {
		return
	}
	sentry.CaptureException(err)
}

func beforeSendHook(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if event.Message != "" {
		event.Message = sanitizeString(event.Message)
	}
	for i := range event.Exception {
		event.Exception[i].Value = sanitizeString(event.Exception[i].Value)
		if st := event.Exception[i].Stacktrace; st != nil {
			for j := range st.Frames {
				st.Frames[j].Vars = sanitizeMap(st.Frames[j].Vars)
			}
		}
	}
	event.Extra = sanitizeMap(event.Extra)
	for key, ctxData := range event.Contexts {
		event.Contexts[key] = sanitizeMap(ctxData)
	}
	for key, value := range event.Tags {
		event.Tags[key] = sanitizeString(value)
	}
	return event
}

// sanitizeString 清理字符串中的敏感数据
func sanitizeString(s string) string {
	s = sensitiveKVPattern.ReplaceAllString(s, "$1=[REDACTED]")
	return homeDirPattern.ReplaceAllString(s, "${1}[REDACTED]")
}

func sanitizeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	result := make(map[string]interface{}, len(m))
	for key, value := range m {
		switch v := value.(type) {
		case string:
			if isSensitiveKey(key) {
				result[key] = "[REDACTED]"
			} else {
				result[key] = sanitizeString(v)
			}
		case map[string]interface{}:
			result[key] = sanitizeMap(v)
		default:
			if isSensitiveKey(key) {
				result[key] = "[REDACTED]"
			} else {
				result[key] = value
			}
		}
	}
	return result
}

func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(keyLower, keyword) {
			return true
		}
	}
	return false
}
