package observe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the counter value for the data point carrying key=value, or
// the first data point when key is empty.
func sumFor(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: data is %T, want Sum[int64]", m.Name, m.Data)
	}
	for _, dp := range sum.DataPoints {
		if key == "" {
			return dp.Value
		}
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	t.Fatalf("%s: no data point with %s=%s", m.Name, key, value)
	return 0
}

func TestRecordInference(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordInference(ctx, "encode", 2*time.Millisecond)
	m.RecordInference(ctx, "encode", 4*time.Millisecond)
	m.RecordInference(ctx, "detect", time.Millisecond)

	got := findMetric(collect(t, reader), "speechstack.inference.duration")
	if got == nil {
		t.Fatal("inference histogram not found")
	}
	hist, ok := got.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("data is %T, want Histogram[float64]", got.Data)
	}
	counts := map[string]uint64{}
	for _, dp := range hist.DataPoints {
		v, _ := dp.Attributes.Value("model")
		counts[v.AsString()] = dp.Count
		if len(dp.Bounds) != len(latencyBuckets) {
			t.Errorf("bounds = %v, want %v", dp.Bounds, latencyBuckets)
		}
	}
	if counts["encode"] != 2 || counts["detect"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		m.RecordFrame(ctx)
	}
	m.RecordStageError(ctx, "asr")
	m.RecordStageError(ctx, "asr")
	m.RecordStageError(ctx, "vad")
	m.RecordActivation(ctx, "wakeword")

	rm := collect(t, reader)
	tests := []struct {
		name  string
		key   string
		value string
		want  int64
	}{
		{"speechstack.frames", "", "", 5},
		{"speechstack.stage.errors", "stage", "asr", 2},
		{"speechstack.stage.errors", "stage", "vad", 1},
		{"speechstack.activations", "source", "wakeword", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.value, func(t *testing.T) {
			got := findMetric(rm, tt.name)
			if got == nil {
				t.Fatalf("%s not found", tt.name)
			}
			if v := sumFor(t, got, tt.key, tt.value); v != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, v, tt.want)
			}
		})
	}
}

func TestInitProviderServesMetrics(t *testing.T) {
	p, err := InitProvider(ProviderConfig{ServiceVersion: "test"})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	m, err := NewMetrics(p.MeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordFrame(context.Background())

	srv := httptest.NewServer(p.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "speechstack_frames") {
		t.Errorf("scrape output missing speechstack_frames:\n%s", body)
	}
}
