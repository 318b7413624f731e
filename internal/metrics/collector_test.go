package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterRegistrationIsIdempotent(t *testing.T) {
	c := NewMetricsCollector()
	a := c.Counter("x_total", "x", Labels("verb", "add"))
	b := c.Counter("x_total", "x", Labels("verb", "add"))
	a.Inc()
	b.Add(2)
	if a != b || a.Value() != 3 {
		t.Fatalf("expected shared counter with value 3, got %d", a.Value())
	}
	if other := c.Counter("x_total", "x", Labels("verb", "list")); other.Value() != 0 {
		t.Fatal("distinct label sets must not share a counter")
	}
}

func TestLabelsEscaping(t *testing.T) {
	got := Labels("device", `10.0.0.2`, "op", `say "hi"`)
	want := `device="10.0.0.2",op="say \"hi\""`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestRender(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("jukebot_commands_total", "Commands", Labels("verb", "add")).Inc()
	c.Gauge("jukebot_in_flight", "In flight", "").Set(2)
	h := c.Histogram("jukebot_latency_seconds", "Latency", "", []float64{1, 0.1})
	h.Observe(0.05)
	h.Observe(5)

	out := c.Render()
	for _, want := range []string{
		"# TYPE jukebot_commands_total counter",
		`jukebot_commands_total{verb="add"} 1`,
		"jukebot_in_flight 2",
		`jukebot_latency_seconds_bucket{le="0.1"} 1`,
		`jukebot_latency_seconds_bucket{le="1"} 1`,
		`jukebot_latency_seconds_bucket{le="+Inf"} 2`,
		"jukebot_latency_seconds_count 2",
		"jukebot_uptime_seconds",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHandler(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("jukebot_commands_denied_total", "Denied", "").Inc()

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "jukebot_commands_denied_total 1") {
		t.Fatalf("unexpected body:\n%s", rec.Body.String())
	}
}

func TestDeviceErrorHelper(t *testing.T) {
	DeviceError("10.0.0.9", "flush")
	DeviceError("10.0.0.9", "flush")
	ctr := Collector.Counter("jukebot_device_errors_total", "", Labels("device", "10.0.0.9", "op", "flush"))
	if ctr.Value() != 2 {
		t.Fatalf("expected 2, got %d", ctr.Value())
	}
}
