package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// 全局 slog 封装：业务代码只用 printf 风格入口，级别与输出
// 可在运行中切换（配置热加载、stdout+文件 MultiWriter）。

var (
	level  slog.LevelVar
	active atomic.Pointer[slog.Logger]
)

func init() {
	active.Store(build(os.Stdout))
}

func build(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &level}))
}

// SetOutput 切换日志输出目标。
func SetOutput(w io.Writer) {
	active.Store(build(w))
}

// SetLevel 按配置字符串调整级别，未知值落回 info。
func SetLevel(name string) {
	level.Set(parseLevel(name))
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debugf(format string, v ...any) {
	active.Load().Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	active.Load().Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	active.Load().Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	active.Load().Error(fmt.Sprintf(format, v...))
}
