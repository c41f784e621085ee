// 包 telemetry：可选的 OpenTelemetry 追踪导出
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// DefaultDialTimeout 是启动时等待采集端就绪的默认上限。
const DefaultDialTimeout = 10 * time.Second

// Config：OTLP 导出参数；Endpoint 为空表示不启用追踪
type Config struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
	Version     string
	DialTimeout time.Duration
}

// 文档注释：初始化进程级 TracerProvider
// 约束：Endpoint 为空时不改动全局 provider（保持 no-op），返回的关闭函数同样为空操作；
// 采集端在 DialTimeout 内未进入 Ready 状态视为启动失败；
// 调用方在退出时必须调用关闭函数以刷新缓冲的 span 并关闭连接。
func SetupProvider(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	conn, err := dialCollector(ctx, cfg)
	if err != nil {
		return nil, err
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(otlptracegrpc.WithGRPCConn(conn)))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.Version),
	))
	if err != nil {
		_ = exporter.Shutdown(ctx)
		conn.Close()
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	// WithGRPCConn 下导出器不持有连接，连接在 provider 之后关闭
	return func(ctx context.Context) error {
		return errors.Join(provider.Shutdown(ctx), conn.Close())
	}, nil
}

// dialCollector：建立到采集端的 gRPC 连接并等待其进入 Ready 状态
// 约束：grpc.NewClient 本身是惰性的，必须显式 Connect 并观察连接状态，否则不可达的地址在启动时不会报错。
func dialCollector(ctx context.Context, cfg Config) (*grpc.ClientConn, error) {
	creds := credentials.NewClientTLSFromCert(nil, "")
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	}
	conn, err := grpc.NewClient(cfg.Endpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("otlp collector %s: %w", cfg.Endpoint, err)
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return conn, nil
		}
		if !conn.WaitForStateChange(waitCtx, state) {
			conn.Close()
			return nil, fmt.Errorf("otlp collector %s not ready (last state %s): %w", cfg.Endpoint, state, waitCtx.Err())
		}
	}
}

// Handler 为每个请求创建服务端 span，span 名为 operation；未指定 provider 时使用全局 provider。
func Handler(next http.Handler, operation string, opts ...otelhttp.Option) http.Handler {
	return otelhttp.NewHandler(next, operation, opts...)
}
