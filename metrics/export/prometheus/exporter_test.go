package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/careauth"
)

type fakeSource struct {
	snapshot careauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() careauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: careauth.MetricsSnapshot{
			Counters:   map[careauth.MetricID]uint64{},
			Histograms: map[careauth.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndHistograms(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: careauth.MetricsSnapshot{
			Counters: map[careauth.MetricID]uint64{
				careauth.MetricLoginSuccess:     7,
				careauth.MetricLockoutTriggered: 1,
			},
			Histograms: map[careauth.MetricID][]uint64{
				careauth.MetricLoginLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"careauth_login_success_total 7",
		"careauth_lockout_triggered_total 1",
		"# TYPE careauth_login_latency_seconds histogram",
		"careauth_login_latency_seconds_bucket{le=\"0.005\"} 1",
		"careauth_login_latency_seconds_bucket{le=\"+Inf\"} 36",
		"careauth_oauth_latency_seconds_count 0",
		"careauth_security_events_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: careauth.MetricsSnapshot{
			Counters:   map[careauth.MetricID]uint64{careauth.MetricLoginSuccess: 1},
			Histograms: map[careauth.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestEscapeHelp(t *testing.T) {
	if got := escapeHelp("a\\b\nc"); got != `a\\b\nc` {
		t.Fatalf("escapeHelp = %q", got)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: careauth.MetricsSnapshot{
			Counters: map[careauth.MetricID]uint64{
				careauth.MetricLoginSuccess:    1000,
				careauth.MetricLoginFailure:    40,
				careauth.MetricRegisterSuccess: 120,
				careauth.MetricOAuthSuccess:    300,
			},
			Histograms: map[careauth.MetricID][]uint64{
				careauth.MetricLoginLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
