// 包 server：持有监听套接字，并发处理连接，在上下文取消时优雅退出
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"time"

	"myip/internal/logger"
)

// ErrBind 表示监听地址无法绑定（被占用、无权限等），属于启动期致命错误。
var ErrBind = errors.New("bind failed")

const DefaultShutdownTimeout = 10 * time.Second

// TLSConfig：可选 TLS；证书或私钥文件缺失时生成自签名证书
type TLSConfig struct {
	Enable     bool
	CertPath   string
	KeyPath    string
	CommonName string
}

// Config：服务运行参数
type Config struct {
	Handler           http.Handler
	TLS               TLSConfig
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	Logger            *slog.Logger
	// Ready 在开始接受连接前关闭，可为 nil
	Ready chan<- struct{}
}

// Listen：绑定 TCP 监听地址
// 约束：必须在处理任何请求之前调用；失败时返回包装了 ErrBind 的错误，由调用方终止进程。
func Listen(addr netip.AddrPort) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBind, addr, err)
	}
	return ln, nil
}

// 文档注释：在 ln 上提供服务直到 ctx 取消
// 背景：每个连接由 net/http 在独立 goroutine 中处理；单个连接的读写错误只经 ErrorLog 记录，不影响其他连接。
// 约束：Serve 接管 ln 的生命周期；ctx 取消后在 ShutdownTimeout 内等待在途请求完成。
func Serve(ctx context.Context, ln net.Listener, cfg Config) error {
	if cfg.Handler == nil {
		ln.Close()
		return errors.New("server handler is required")
	}
	l := cfg.Logger
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	srv := &http.Server{
		Handler:           cfg.Handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ErrorLog:          logger.StdLogger(l, slog.LevelWarn),
	}
	if cfg.TLS.Enable {
		cert, err := loadCertificate(cfg.TLS)
		if err != nil {
			ln.Close()
			return err
		}
		srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
		ln = tls.NewListener(ln, srv.TLSConfig)
	}

	if cfg.Ready != nil {
		close(cfg.Ready)
	}
	l.Info("listening", "addr", ln.Addr().String(), "tls", cfg.TLS.Enable)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	l.Info("shutdown_begin")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	l.Info("shutdown_ok")
	return nil
}

func loadCertificate(c TLSConfig) (tls.Certificate, error) {
	cn := c.CommonName
	if cn == "" {
		cn = "myip.local"
	}
	if err := EnsureSelfSignedCert(c.CertPath, c.KeyPath, cn); err != nil {
		return tls.Certificate{}, fmt.Errorf("prepare certificate: %w", err)
	}
	cert, err := tls.LoadX509KeyPair(c.CertPath, c.KeyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("load certificate: %w", err)
	}
	return cert, nil
}
