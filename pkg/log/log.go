// Package log 提供了 pwait 的诊断输出，基于 log/slog
//
// 所有诊断信息都写到标准错误输出，标准输出只留给结果行。
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// 支持的输出格式
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

var logger *slog.Logger

// Options 配置日志
type Options struct {
	// Verbose 打开调试级别的输出（每次等待的原始状态等）
	Verbose bool
	// Format 为 auto、text 或 json
	// auto 在 stderr 是终端时使用 text，否则使用 json
	Format string
	// Stderr 默认为 os.Stderr
	Stderr io.Writer
}

// Init 根据 opts 初始化全局 logger 并返回它
func Init(opts Options) (*slog.Logger, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch resolveFormat(opts.Format, stderr) {
	case FormatJSON:
		handler = slog.NewJSONHandler(stderr, handlerOpts)
	case FormatText:
		handler = slog.NewTextHandler(stderr, handlerOpts)
	default:
		return nil, fmt.Errorf("log: unknown format %q", opts.Format)
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

func resolveFormat(format string, w io.Writer) string {
	if format != "" && format != FormatAuto {
		return format
	}
	// 非文件（例如测试中的 buffer）按终端处理
	f, ok := w.(*os.File)
	if !ok || term.IsTerminal(int(f.Fd())) {
		return FormatText
	}
	return FormatJSON
}

// Logger 返回当前的全局 logger
func Logger() *slog.Logger {
	return logger
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}

// SetOutput 将输出切换到 w，级别为 debug（测试用）
func SetOutput(w io.Writer) {
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// Discard 返回一个丢弃所有输出的 logger
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func init() {
	logger = slog.Default()
}
