package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/petems/beatcap/internal/audio"
)

func TestHandoffObserverCounters(t *testing.T) {
	m := New()
	h := audio.NewHandoff(1, 2, m)

	h.Send([]float32{1, 2})
	h.Send([]float32{3, 4}) // full
	h.Detach()
	h.Send([]float32{5, 6})

	if got := testutil.ToFloat64(m.BlocksSent); got != 1 {
		t.Errorf("expected 1 sent, got %v", got)
	}
	if got := testutil.ToFloat64(m.BlocksDropped); got != 1 {
		t.Errorf("expected 1 dropped, got %v", got)
	}
	if got := testutil.ToFloat64(m.SendFailures); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
}

func TestFaultsByKind(t *testing.T) {
	m := New()
	m.Faults(3, audio.FaultInputOverflow)
	m.Faults(1, audio.FaultInputUnderflow)

	if got := testutil.ToFloat64(m.StreamFaults.WithLabelValues("input overflow")); got != 3 {
		t.Errorf("expected 3 overflow faults, got %v", got)
	}
	if got := testutil.ToFloat64(m.StreamFaults.WithLabelValues("input underflow")); got != 1 {
		t.Errorf("expected 1 underflow fault, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.SetRunning(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "beatcap_capture_running 1") {
		t.Errorf("expected running gauge in output:\n%s", rec.Body.String())
	}
}
