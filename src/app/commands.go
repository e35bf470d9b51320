package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownCommand 调用了未注册的命令
var ErrUnknownCommand = errors.New("unknown command")

// CommandFunc 暴露给界面层的命令
type CommandFunc func(ctx context.Context, args ...string) (string, error)

// Commands 命令注册表
type Commands struct {
	mu       sync.RWMutex
	handlers map[string]CommandFunc
}

func NewCommands() *Commands {
	return &Commands{handlers: make(map[string]CommandFunc)}
}

// Register 注册命令，名称重复时返回错误
func (c *Commands) Register(name string, fn CommandFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("invalid command registration: %q", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.handlers[name]; ok {
		return fmt.Errorf("command %q already registered", name)
	}
	c.handlers[name] = fn
	return nil
}

// Invoke 调用命令
func (c *Commands) Invoke(ctx context.Context, name string, args ...string) (string, error) {
	c.mu.RLock()
	fn, ok := c.handlers[name]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return fn(ctx, args...)
}

// Names 返回按字母排序的命令名
func (c *Commands) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Greet 问候命令
func Greet(_ context.Context, args ...string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("greet expects exactly one name, got %d arguments", len(args))
	}
	return fmt.Sprintf("Hello, %s! You've been greeted from Go!", args[0]), nil
}
