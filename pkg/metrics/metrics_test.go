package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterAndGauge(t *testing.T) {
	r := New()
	c := r.Counter("match_requests_total", "requests")
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Fatalf("counter = %d", c.Value())
	}

	g := r.Gauge("labs_indexed", "labs")
	g.Set(10)
	g.Inc()
	g.Dec()
	if g.Value() != 10 {
		t.Fatalf("gauge = %d", g.Value())
	}
}

func TestRegistryReturnsSameMetric(t *testing.T) {
	r := New()
	a := r.Counter("x", "")
	b := r.Counter("x", "")
	if a != b {
		t.Fatal("expected same counter instance")
	}
}

func TestWithLabels(t *testing.T) {
	got := WithLabels("match_requests_total", "status", "ok")
	want := `match_requests_total{status="ok"}`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if WithLabels("x", "odd") != "x" {
		t.Fatal("odd label pairs should be ignored")
	}
}

func TestRender_CounterSeries(t *testing.T) {
	r := New()
	r.Counter(WithLabels("match_requests_total", "status", "ok"), "requests").Add(5)
	r.Counter(WithLabels("match_requests_total", "status", "error"), "requests").Inc()

	out := r.Render()
	for _, want := range []string{
		"# TYPE match_requests_total counter",
		`match_requests_total{status="error"} 1`,
		`match_requests_total{status="ok"} 5`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestRender_Histogram(t *testing.T) {
	r := New()
	h := r.Histogram("match_duration_seconds", "latency", []float64{0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)

	out := r.Render()
	for _, want := range []string{
		"# TYPE match_duration_seconds histogram",
		`match_duration_seconds_bucket{le="0.1"} 1`,
		`match_duration_seconds_bucket{le="1"} 2`,
		`match_duration_seconds_bucket{le="+Inf"} 3`,
		"match_duration_seconds_count 3",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestHandler(t *testing.T) {
	app := NewApp()
	app.MatchRequests.Inc()

	rec := httptest.NewRecorder()
	app.Registry.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "match_requests_total 1") {
		t.Fatalf("body missing counter:\n%s", rec.Body.String())
	}
}
