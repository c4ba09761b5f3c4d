package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.Upload("comprovante", "ok")
	m.Upload("comprovante", "ok")
	m.Upload("contracheque", "too_large")
	m.SummaryCache(true)
	m.SummaryCache(false)
	m.SummaryCache(false)

	if got := testutil.ToFloat64(m.uploads.WithLabelValues("comprovante", "ok")); got != 2 {
		t.Errorf("uploads{comprovante,ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.summaryCache.WithLabelValues("miss")); got != 2 {
		t.Errorf("summary cache misses = %v, want 2", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.Upload("x", "y")
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.Event("created", "ok")
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ChatCommand("query")
	if got := testutil.ToFloat64(b.chatCommands.WithLabelValues("query")); got != 0 {
		t.Fatalf("registries share state: %v", got)
	}
}

func TestMetrics_HandlerExposesMirrorCounters(t *testing.T) {
	m := New()
	m.Mirror("created", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `financas_sheets_mirror_total{action="created",result="ok"} 1`) {
		t.Errorf("mirror counter missing from exposition:\n%s", rec.Body.String())
	}
}
