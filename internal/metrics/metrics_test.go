package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/headless-cms-admin/internal/metrics"
	"github.com/headless-cms-admin/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// counterValue gathers reg and returns the counter matching name and labels
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok {
			if want != lp.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}

func TestOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.Op("entries", "create", nil)
	m.Op("entries", "create", nil)
	m.Op("entries", "create", errors.New("boom"))

	if got := counterValue(t, reg, "cms_operations_total", map[string]string{"service": "entries", "op": "create", "result": "ok"}); got != 2 {
		t.Errorf("Expected 2 ok operations, got %v", got)
	}
	if got := counterValue(t, reg, "cms_operations_total", map[string]string{"service": "entries", "op": "create", "result": "error"}); got != 1 {
		t.Errorf("Expected 1 failed operation, got %v", got)
	}
}

func TestObserveChange(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ObserveChange(repository.Change{Collection: "cms_entries", Op: repository.OpInsert, ID: "e-1"})
	m.ObserveChange(repository.Change{Collection: "cms_entries", Op: repository.OpDelete, ID: "e-1"})

	if got := counterValue(t, reg, "cms_store_writes_total", map[string]string{"collection": "cms_entries"}); got != 2 {
		t.Errorf("Expected 2 writes, got %v", got)
	}
}

func TestNilCollector(t *testing.T) {
	var m *metrics.Collector

	// none of these may panic
	m.Op("entries", "create", nil)
	m.ObserveChange(repository.Change{Collection: "cms_entries"})
	m.ScheduledPublished(3)
	m.HTTPRequest("GET", "/v1/entries", "200", time.Millisecond)
}

func TestHandler(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	m.ScheduledPublished(2)
	m.HTTPRequest("GET", "/v1/entries", "200", 5*time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"cms_scheduled_publish_total 2", "cms_http_requests_total", "cms_http_request_duration_seconds"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}
