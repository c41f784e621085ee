package api

import (
	"context"
	"log/slog"
	"net/netip"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// 文档注释：路由命中的诊断旁路
// 背景：仅用于观测，不属于功能契约；实现不得阻塞，也不得影响响应。
// 约束：路由器允许 Tracer 为 nil，核心在没有任何日志/追踪后端时也可独立测试。
type Tracer interface {
	RouteHit(ctx context.Context, route string, ip netip.Addr)
}

// LogTracer 以 debug 级别记录每次路由命中。
type LogTracer struct {
	L *slog.Logger
}

func (t LogTracer) RouteHit(ctx context.Context, route string, ip netip.Addr) {
	if t.L == nil {
		return
	}
	t.L.DebugContext(ctx, "route_hit", "route", route, "ip", ip.String())
}

// SpanTracer 在当前请求的 span 上追加事件；没有活动 span 时为空操作。
type SpanTracer struct{}

func (SpanTracer) RouteHit(ctx context.Context, route string, ip netip.Addr) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("route_hit", trace.WithAttributes(
		attribute.String("myip.route", route),
		attribute.String("myip.resolved_ip", ip.String()),
	))
}

type multiTracer []Tracer

func (m multiTracer) RouteHit(ctx context.Context, route string, ip netip.Addr) {
	for _, t := range m {
		t.RouteHit(ctx, route, ip)
	}
}

// Tracers 把多个 Tracer 合并为一个，忽略 nil。
func Tracers(ts ...Tracer) Tracer {
	out := make(multiTracer, 0, len(ts))
	for _, t := range ts {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}
