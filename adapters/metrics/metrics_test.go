package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/artpar/specgate/adapters/metrics"
)

func family(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func TestObserveRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ObserveRegistration("GET", nil)
	m.ObserveRegistration("GET", nil)
	m.ObserveRegistration("POST", errors.New("bad spec"))

	f := family(t, reg, "specgate_registrations_total")
	if len(f.GetMetric()) != 2 {
		t.Errorf("expected 2 series, got %d", len(f.GetMetric()))
	}
	for _, metric := range f.GetMetric() {
		labels := map[string]string{}
		for _, l := range metric.GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		if labels["method"] == "GET" && (labels["result"] != "ok" || metric.GetCounter().GetValue() != 2) {
			t.Errorf("GET series = %v %v", labels, metric.GetCounter().GetValue())
		}
		if labels["method"] == "POST" && labels["result"] != "error" {
			t.Errorf("POST series = %v", labels)
		}
	}
}

func TestObserveLookup(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ObserveLookup("", true)
	m.ObserveLookup("GET", false)

	f := family(t, reg, "specgate_lookups_total")
	if len(f.GetMetric()) != 2 {
		t.Errorf("expected 2 series, got %d", len(f.GetMetric()))
	}
}

func TestSetRoutesAndReload(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.SetRoutes("GET", 4)
	if v := family(t, reg, "specgate_registered_routes").GetMetric()[0].GetGauge().GetValue(); v != 4 {
		t.Errorf("registered_routes = %v, want 4", v)
	}

	at := time.Unix(1700000000, 0)
	m.ObserveReload(nil, at)
	m.ObserveReload(errors.New("boom"), at)
	if v := family(t, reg, "specgate_config_last_reload_timestamp").GetMetric()[0].GetGauge().GetValue(); v != 1700000000 {
		t.Errorf("last reload = %v", v)
	}
	if v := family(t, reg, "specgate_config_reload_errors_total").GetMetric()[0].GetCounter().GetValue(); v != 1 {
		t.Errorf("reload errors = %v", v)
	}
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ObserveRequest("GET", 200, 50*time.Millisecond)
	m.ObserveRequest("POST", 400, time.Millisecond)
	m.ObserveCommandFailure("rename")

	if n := len(family(t, reg, "specgate_requests_total").GetMetric()); n != 2 {
		t.Errorf("requests_total series = %d, want 2", n)
	}
	h := family(t, reg, "specgate_request_duration_seconds").GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("sample count = %d", h.GetSampleCount())
	}
	family(t, reg, "specgate_command_validation_failures_total")
}

func TestNilCollector(t *testing.T) {
	var m *metrics.Collector
	m.ObserveRegistration("GET", nil)
	m.SetRoutes("GET", 1)
	m.ObserveLookup("GET", true)
	m.ObserveCommandFailure("x")
	m.ObserveRequest("GET", 200, time.Second)
	m.ObserveReload(nil, time.Now())
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
		{100, "other"},
	}
	for _, tt := range tests {
		if got := metrics.StatusLabel(tt.status); got != tt.want {
			t.Errorf("StatusLabel(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}
