package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(promhttp.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}

func TestMetricsEndpoint(t *testing.T) {
	// Initialize metrics - including vector metrics to ensure they appear
	RecordProbe(true, 50*time.Millisecond)
	RecordProbe(false, 50*time.Millisecond)
	ProbesInFlight.Set(0)
	RecordSourceFetch("ok")
	SetBreakerState("init.host", "CLOSED")
	RecordBreakerTrip("init.host")

	output := scrape(t)

	expectedMetrics := []string{
		"iptv_probes_total",
		"iptv_probe_duration_seconds",
		"iptv_probes_in_flight",
		"iptv_sources_fetched_total",
		"iptv_source_breaker_state",
		"iptv_source_breaker_trips_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(output, metric) {
			t.Errorf("Expected metric %s not found in output", metric)
		}
	}
}

func TestProbeOutcomeLabels(t *testing.T) {
	RecordProbe(true, 10*time.Millisecond)
	RecordProbe(false, 10*time.Millisecond)

	output := scrape(t)

	for _, label := range []string{`outcome="playable"`, `outcome="dead"`} {
		if !strings.Contains(output, label) {
			t.Errorf("Expected to find label %s in output", label)
		}
	}
}

func TestSourceFetchLabels(t *testing.T) {
	RecordSourceFetch("ok")
	RecordSourceFetch("error")
	RecordSourceFetch("cache")

	output := scrape(t)

	for _, label := range []string{`result="ok"`, `result="error"`, `result="cache"`} {
		if !strings.Contains(output, label) {
			t.Errorf("Expected to find label %s in output", label)
		}
	}
}

func TestBreakerStateValues(t *testing.T) {
	tests := []struct {
		state string
		value string
	}{
		{"CLOSED", "0"},
		{"OPEN", "1"},
		{"HALF-OPEN", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			SetBreakerState("test.host", tt.state)

			output := scrape(t)

			expectedLine := `iptv_source_breaker_state{host="test.host"} ` + tt.value
			if !strings.Contains(output, expectedLine) {
				t.Errorf("Expected to find %s in output for state %s", expectedLine, tt.state)
			}
		})
	}
}
