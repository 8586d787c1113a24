package system

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"norelock.dev/listenify/gateway/internal/db/redis"
	"norelock.dev/listenify/gateway/internal/transport"
	"norelock.dev/listenify/gateway/internal/utils"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthAllUp(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), utils.NewNopLogger())
	defer rc.Close()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	svc := NewHealthService(utils.NewNopLogger(), HealthServiceConfig{Version: "1.2.3", Environment: "test"},
		PingCheck("redis", false, rc),
		UpstreamCheck("piped", upstream.URL+"/healthcheck", transport.NewDownloader()),
	)
	svc.CheckHealth(context.Background())

	health := svc.GetHealth(context.Background())
	if health.Status != StatusUp {
		t.Fatalf("status = %s, components %+v", health.Status, health.Components)
	}
	if len(health.Components) != 2 || health.Components[0].Name != "piped" || health.Components[1].Name != "redis" {
		t.Errorf("components not sorted or missing: %+v", health.Components)
	}
	if health.Version != "1.2.3" || health.Environment != "test" {
		t.Errorf("unexpected metadata %+v", health)
	}
}

func TestHealthDegradedAndDown(t *testing.T) {
	failing := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	ok := pingFunc(func(context.Context) error { return nil })

	svc := NewHealthService(utils.NewNopLogger(), HealthServiceConfig{},
		PingCheck("redis", false, failing),
		PingCheck("upstream", true, ok),
	)
	svc.CheckHealth(context.Background())
	if got := svc.GetHealth(context.Background()).Status; got != StatusDegraded {
		t.Errorf("non-critical failure: status = %s, want degraded", got)
	}

	svc = NewHealthService(utils.NewNopLogger(), HealthServiceConfig{},
		PingCheck("redis", false, ok),
		PingCheck("upstream", true, failing),
	)
	svc.CheckHealth(context.Background())
	health := svc.GetHealth(context.Background())
	if health.Status != StatusDown {
		t.Errorf("critical failure: status = %s, want down", health.Status)
	}
	for _, c := range health.Components {
		if c.Name == "upstream" && !strings.Contains(c.Description, "connection refused") {
			t.Errorf("description = %q", c.Description)
		}
	}
}

func TestCheckHealthBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	slow := pingFunc(func(context.Context) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return errors.New("unreachable")
	})

	var checks []Check
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		checks = append(checks, PingCheck(name, true, slow))
	}

	svc := NewHealthService(utils.NewNopLogger(), HealthServiceConfig{}, checks...)
	svc.CheckHealth(context.Background())

	if got := peak.Load(); got > maxConcurrentChecks {
		t.Errorf("peak concurrency = %d, want at most %d", got, maxConcurrentChecks)
	}

	// A failing critical check does not cut the others short
	health := svc.GetHealth(context.Background())
	if len(health.Components) != len(checks) {
		t.Fatalf("got %d components, want %d", len(health.Components), len(checks))
	}
	for _, c := range health.Components {
		if !strings.Contains(c.Description, "unreachable") {
			t.Errorf("%s: description = %q", c.Name, c.Description)
		}
	}
}

func TestUpstreamCheck(t *testing.T) {
	var status atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	check := UpstreamCheck("piped", srv.URL, transport.NewDownloader())
	ctx := context.Background()

	for _, tt := range []struct {
		status  int
		wantErr bool
	}{
		{http.StatusOK, false},
		{http.StatusNotFound, false},
		{http.StatusTooManyRequests, false},
		{http.StatusBadGateway, true},
	} {
		status.Store(int64(tt.status))
		if err := check.Probe(ctx); (err != nil) != tt.wantErr {
			t.Errorf("status %d: err = %v, wantErr %v", tt.status, err, tt.wantErr)
		}
	}

	srv.Close()
	if err := check.Probe(ctx); err == nil {
		t.Error("expected error for closed server")
	}
}

func TestHealthStartStops(t *testing.T) {
	calls := make(chan struct{}, 10)
	svc := NewHealthService(utils.NewNopLogger(), HealthServiceConfig{CheckInterval: 10 * time.Millisecond},
		PingCheck("x", true, pingFunc(func(context.Context) error {
			select {
			case calls <- struct{}{}:
			default:
			}
			return nil
		})),
	)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	defer cancel()

	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatal("periodic check did not run")
		}
	}
}

func TestMetricsService(t *testing.T) {
	m := NewMetricsService(utils.NewNopLogger())

	m.ObserveUpstreamRequest("GET", 200, 120*time.Millisecond)
	m.ObserveUpstreamRequest("GET", 503, time.Second)
	m.IncUpstreamRateLimited()
	m.IncUpstreamFailures("GET")
	m.ObserveInvocation("search", "ok", 200*time.Millisecond)
	m.ObserveInvocation("search", "rate_limited", 10*time.Millisecond)
	m.SetBridgeInFlight(3)
	m.ObserveHTTPRequest("GET", "/media/search", 200, 50*time.Millisecond)
	m.IncWSConnectionsActive()
	m.ObserveWSMessage("in", "request", 128)

	if got := testutil.ToFloat64(m.upstreamRequestsTotal.WithLabelValues("GET", "5xx")); got != 1 {
		t.Errorf("5xx upstream requests = %v", got)
	}
	if got := testutil.ToFloat64(m.upstreamRateLimited); got != 1 {
		t.Errorf("rate limited = %v", got)
	}
	if got := testutil.ToFloat64(m.bridgeInvocationsTotal.WithLabelValues("search", "ok")); got != 1 {
		t.Errorf("search ok = %v", got)
	}
	if got := testutil.ToFloat64(m.bridgeInFlight); got != 3 {
		t.Errorf("in flight = %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		"gateway_upstream_requests_total",
		"gateway_bridge_invocations_total",
		"gateway_http_requests_total",
		"gateway_ws_connections_active",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}

	// Independent registries do not collide
	_ = NewMetricsService(utils.NewNopLogger())
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{200: "2xx", 302: "3xx", 404: "4xx", 503: "5xx", 0: "unknown", 700: "unknown"}
	for in, want := range cases {
		if got := statusClass(in); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", in, got, want)
		}
	}
}
