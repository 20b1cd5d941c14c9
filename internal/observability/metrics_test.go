package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestMetricsRecordsHTTPAndAICalls(t *testing.T) {
	m := NewMetrics()
	m.ApiInflightInc()
	m.ObserveAPI("get", "/styles", "200", 25*time.Millisecond)
	m.ApiInflightDec()
	m.ObserveAICall("generate_content", "gemini-2.5-flash", "ok", time.Second)
	m.ObserveAICall("embed_content", "", "error", time.Second)
	m.IncRateLimited("/styles")

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	cases := []struct {
		name   string
		labels map[string]string
	}{
		{"infographic_http_requests_total", map[string]string{"method": "GET", "route": "/styles", "status": "200"}},
		{"infographic_http_request_duration_seconds", map[string]string{"method": "GET", "route": "/styles"}},
		{"infographic_ai_calls_total", map[string]string{"op": "generate_content", "model": "gemini-2.5-flash", "status": "ok"}},
		{"infographic_ai_calls_total", map[string]string{"op": "embed_content", "model": "unknown", "status": "error"}},
		{"infographic_http_rate_limited_total", map[string]string{"route": "/styles"}},
	}
	for _, tc := range cases {
		if !hasMetric(families, tc.name, tc.labels) {
			t.Fatalf("expected %s with labels %v", tc.name, tc.labels)
		}
	}
}

func TestMetricsInstancesDoNotCollide(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.ObserveAPI("GET", "/health", "200", time.Millisecond)
	families, err := b.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if hasMetric(families, "infographic_http_requests_total", map[string]string{"route": "/health"}) {
		t.Fatalf("second registry should not see samples from the first")
	}
}

func TestMetricsHandlerServesExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/embeddings", "502", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `infographic_http_requests_total{method="POST",route="/embeddings",status="502"} 1`) {
		t.Fatalf("exposition missing request sample:\n%s", body)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ObserveAICall("op", "model", "ok", time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.IncRateLimited("/")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want=%d got=%d", http.StatusNotFound, rec.Code)
	}
}

func hasMetric(families []*dto.MetricFamily, name string, labels map[string]string) bool {
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.Metric {
			if labelsMatch(metric.GetLabel(), labels) {
				return true
			}
		}
	}
	return false
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	for k, v := range want {
		found := false
		for _, p := range pairs {
			if p.GetName() == k && p.GetValue() == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
