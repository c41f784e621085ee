// 程序入口：仅负责读取配置、初始化依赖并启动服务；路由注册在 internal/api
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"myip/internal/api"
	"myip/internal/config"
	"myip/internal/logger"
	"myip/internal/metrics"
	"myip/internal/resolver"
	"myip/internal/server"
	"myip/internal/telemetry"
	"myip/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "myip",
		Short:         "Report the caller's IP address over HTTP",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	f := cmd.Flags()
	f.StringP("config", "c", config.DefaultPath, "Path to configuration file (YAML)")
	f.StringP("bind-address", "b", "", "Bind address ip:port [default: "+config.DefaultBindAddress+"]")
	f.String("policy", "", "Resolve policy: "+resolver.NamePeer+" or "+resolver.NameLoopback)
	f.String("log-level", "", "Log level (debug, info, warn, error)")
	f.String("log-format", "", "Log format (text, json)")
	f.Bool("metrics", false, "Expose Prometheus metrics on /metrics")
	return cmd
}

// 文档注释：合并配置
// 优先级（低到高）：默认值、配置文件、环境变量、命令行参数；只有用户显式给出的参数才覆盖。
func loadConfig(cmd *cobra.Command, getenv func(string) string) (config.Config, error) {
	cfg := config.Default()
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return cfg, err
	}
	if _, err := config.LoadFile(path, &cfg); err != nil {
		return cfg, err
	}
	if err := config.ApplyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	for name, dst := range map[string]*string{
		"bind-address": &cfg.BindAddress,
		"policy":       &cfg.Policy,
		"log-level":    &cfg.Log.Level,
		"log-format":   &cfg.Log.Format,
	} {
		if f.Changed(name) {
			if *dst, err = f.GetString(name); err != nil {
				return cfg, err
			}
		}
	}
	if f.Changed("metrics") {
		if cfg.Metrics.Enable, err = f.GetBool("metrics"); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// buildHandler 组装路由与中间件；m 为 nil 时不暴露 /metrics。
func buildHandler(policy resolver.Policy, l *slog.Logger, m *metrics.Metrics, tracing bool) http.Handler {
	mux := api.BuildRoutes(policy, api.Options{
		Logger:  l,
		Tracer:  api.Tracers(api.LogTracer{L: l}, api.SpanTracer{}),
		Metrics: m,
	})
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}
	h := m.Middleware(mux)
	h = logger.AccessMiddleware(l)(h)
	if tracing {
		h = telemetry.Handler(h, "myip")
	}
	return h
}

func run(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))

	cfg, err := loadConfig(cmd, os.Getenv)
	if err != nil {
		return err
	}
	l := logger.Setup(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	resolved, err := cfg.Validate()
	if err != nil {
		l.Error("config_invalid", "err", err)
		return err
	}
	l.Info("config_loaded",
		"bind_address", resolved.Addr.String(),
		"policy", resolved.Policy.Name(),
		"metrics", cfg.Metrics.Enable,
		"tls", cfg.TLS.Enable,
		"otlp_endpoint", cfg.Telemetry.Endpoint,
		"version", version.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Version:     version.Version,
	})
	if err != nil {
		l.Error("tracing_init_error", "err", err)
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			l.Warn("tracing_shutdown_error", "err", err)
		}
	}()

	// 先绑定再组装其余组件：地址不可用时直接失败，不进入半启动状态
	ln, err := server.Listen(resolved.Addr)
	if err != nil {
		l.Error("bind_error", "addr", resolved.Addr.String(), "err", err)
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enable {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
	}
	handler := buildHandler(resolved.Policy, l, m, cfg.Telemetry.Endpoint != "")

	return server.Serve(ctx, ln, server.Config{
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.ShutdownTimeout,
		Logger:            l,
		TLS: server.TLSConfig{
			Enable:   cfg.TLS.Enable,
			CertPath: cfg.TLS.CertPath,
			KeyPath:  cfg.TLS.KeyPath,
		},
	})
}
