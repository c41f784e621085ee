package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"myip/internal/logger"
)

// 文档注释：服务指标集合
// 背景：指标注册到调用方提供的 Registry，而不是进程全局注册表，便于测试中并行创建多份。
// 约束：所有方法对 nil 接收者安全，未启用指标时调用方无需判空。
type Metrics struct {
	reg prometheus.Gatherer

	RequestsTotal        *prometheus.CounterVec
	RequestDurationMs    *prometheus.HistogramVec
	PeerParseErrorsTotal prometheus.Counter
}

// New 创建指标并注册到 reg；reg 为 nil 时使用新的独立 Registry。
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		reg: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "myip_requests_total",
			Help: "Total number of answered address requests by route",
		}, []string{"route"}),
		RequestDurationMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "myip_request_duration_ms",
			Help:    "Request duration in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
		}, []string{"code"}),
		PeerParseErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "myip_peer_parse_errors_total",
			Help: "Total number of requests whose peer address could not be parsed",
		}),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestDurationMs, m.PeerParseErrorsTotal)
	return m
}

func (m *Metrics) RouteHit(route string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route).Inc()
}

func (m *Metrics) PeerParseError() {
	if m == nil {
		return
	}
	m.PeerParseErrorsTotal.Inc()
}

// Handler 返回 Prometheus 抓取端点。
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Middleware 按响应状态码统计请求耗时。
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := logger.NewStatusWriter(w)
		start := time.Now()
		next.ServeHTTP(sw, r)
		ms := float64(time.Since(start).Microseconds()) / 1000
		m.RequestDurationMs.WithLabelValues(strconv.Itoa(sw.Status())).Observe(ms)
	})
}
