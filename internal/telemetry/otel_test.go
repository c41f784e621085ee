package telemetry

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"

	"myip/internal/api"
	"myip/internal/resolver"
)

func TestSetupProviderDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupProvider(context.Background(), Config{ServiceName: "myip"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupProviderFailsWhenCollectorUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	endpoint := ln.Addr().String()
	require.NoError(t, ln.Close())

	start := time.Now()
	shutdown, err := SetupProvider(context.Background(), Config{
		ServiceName: "myip",
		Endpoint:    endpoint,
		Insecure:    true,
		DialTimeout: 300 * time.Millisecond,
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, shutdown)
	assert.Contains(t, err.Error(), endpoint)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSetupProviderConnectsToCollector(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(srv.Stop)
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	shutdown, err := SetupProvider(context.Background(), Config{
		ServiceName: "myip",
		Endpoint:    ln.Addr().String(),
		Insecure:    true,
		DialTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestHandlerRecordsRouteHitEvent(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	mux := api.BuildRoutes(resolver.Peer{}, api.Options{Tracer: api.SpanTracer{}})
	h := Handler(mux, "myip", otelhttp.WithTracerProvider(tp))

	req := httptest.NewRequest(http.MethodGet, "/json", nil)
	req.RemoteAddr = "192.0.2.10:54321"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	attrs := map[string]string{}
	for _, ev := range spans[0].Events() {
		if ev.Name != "route_hit" {
			continue
		}
		for _, kv := range ev.Attributes {
			attrs[string(kv.Key)] = kv.Value.AsString()
		}
	}
	assert.Equal(t, api.RouteJSON, attrs["myip.route"])
	assert.Equal(t, netip.MustParseAddr("192.0.2.10").String(), attrs["myip.resolved_ip"])
}
