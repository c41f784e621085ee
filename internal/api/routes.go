// 包 api：集中注册 HTTP 路由，把对端地址交给解析策略，再交给响应编码
package api

import (
	"log/slog"
	"net/http"
	"net/netip"

	"myip/internal/metrics"
	"myip/internal/resolver"
)

const (
	RouteText = "text"
	RouteJSON = "json"
)

// Options：路由的可选协作方，均允许为零值
type Options struct {
	Logger  *slog.Logger
	Tracer  Tracer
	Metrics *metrics.Metrics
}

type router struct {
	policy  resolver.Policy
	l       *slog.Logger
	tracer  Tracer
	metrics *metrics.Metrics
}

// 文档注释：构建并返回路由
// 路由：GET / 返回纯文本地址；GET /json 返回 {"ip": "..."}；其余路径与方法一律 404 空响应体。
// 约束：policy 为 nil 时使用默认策略。
func BuildRoutes(policy resolver.Policy, opts Options) *http.ServeMux {
	if policy == nil {
		policy = resolver.Default()
	}
	rt := &router{policy: policy, l: opts.Logger, tracer: opts.Tracer, metrics: opts.Metrics}
	if rt.l == nil {
		rt.l = slog.New(slog.DiscardHandler)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", rt.serve(RouteText, EncodeText))
	mux.HandleFunc("GET /json", rt.serve(RouteJSON, EncodeJSON))
	mux.HandleFunc("/", notFound)
	return mux
}

func (rt *router) serve(route string, encode func(netip.Addr) Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		peer, err := netip.ParseAddrPort(r.RemoteAddr)
		if err != nil {
			// 监听器没有提供 ip:port 形式的对端地址，属于接线错误而非请求错误
			rt.l.ErrorContext(r.Context(), "peer_addr_invalid", "route", route, "remote_addr", r.RemoteAddr, "err", err)
			rt.metrics.PeerParseError()
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		ip := rt.policy.Resolve(r.Header, peer)
		res := encode(ip)
		if rt.tracer != nil {
			rt.tracer.RouteHit(r.Context(), route, ip)
		}
		rt.metrics.RouteHit(route)
		res.write(w)
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}
