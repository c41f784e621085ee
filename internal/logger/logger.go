// 包 logger：按配置构建 slog 日志器；日志器由调用方逐层传递，不设进程级单例
package logger

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// Options：日志级别与输出格式
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// ParseLevel 把 debug|info|warn|error 映射为 slog 级别，未知值回退到 info。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Setup：初始化日志器
// 约束：默认输出到标准错误；format 为 json 时使用 JSON，其余一律文本格式。
func Setup(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var h slog.Handler
	if strings.ToLower(opts.Format) == "json" {
		h = slog.NewJSONHandler(out, ho)
	} else {
		h = slog.NewTextHandler(out, ho)
	}
	return slog.New(h)
}

// StdLogger 把 net/http 等只接受 *log.Logger 的组件桥接到 slog，按指定级别输出。
func StdLogger(l *slog.Logger, level slog.Level) *log.Logger {
	return slog.NewLogLogger(l.Handler(), level)
}
