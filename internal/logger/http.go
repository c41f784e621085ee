// 包 logger：http 访问日志中间件，记录方法、路径、状态、耗时、字节数与远端地址
package logger

import (
	"log/slog"
	"net/http"
	"time"
)

// StatusWriter：记录已写出的状态码与字节数，供访问日志与指标中间件共用
// 约束：处理器从未调用 WriteHeader 时状态码视为 200，与 net/http 的隐式行为一致。
type StatusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func NewStatusWriter(w http.ResponseWriter) *StatusWriter {
	return &StatusWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *StatusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *StatusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *StatusWriter) Status() int { return w.status }

func (w *StatusWriter) Bytes() int { return w.bytes }

// Unwrap 让 http.ResponseController 能访问底层 ResponseWriter。
func (w *StatusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// AccessMiddleware：以 debug 级别输出每个请求一条 http_access 记录
// 约束：不读取请求体；ip 字段直接取 RemoteAddr，不参考任何转发头。
func AccessMiddleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Enabled(r.Context(), slog.LevelDebug) {
				next.ServeHTTP(w, r)
				return
			}
			sw := NewStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)
			l.LogAttrs(r.Context(), slog.LevelDebug, "http_access",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.Status()),
				slog.Int("bytes", sw.Bytes()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("ip", r.RemoteAddr),
			)
		})
	}
}
