package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	goCaptcha "github.com/MrEthical07/goCaptcha"
)

type fakeSource struct {
	snapshot goCaptcha.MetricsSnapshot
	dropped  uint64
	degraded bool
}

func (f fakeSource) MetricsSnapshot() goCaptcha.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }
func (f fakeSource) Degraded() bool                             { return f.degraded }

func gather(t *testing.T, c prom.Collector) map[string]*dto.MetricFamily {
	t.Helper()

	reg := prom.NewRegistry()
	reg.MustRegister(c)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		out[mf.GetName()] = mf
	}
	return out
}

func TestCollectorExposesCountersAndHistogram(t *testing.T) {
	families := gather(t, NewCollectorFromSource(fakeSource{
		snapshot: goCaptcha.MetricsSnapshot{
			Counters: map[goCaptcha.MetricID]uint64{
				goCaptcha.MetricVerifySuccess: 7,
			},
			Histograms: map[goCaptcha.MetricID][]uint64{
				goCaptcha.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped:  2,
		degraded: true,
	}))

	counter := func(name string) float64 {
		mf, ok := families[name]
		if !ok {
			t.Fatalf("missing family %s", name)
		}
		return mf.GetMetric()[0].GetCounter().GetValue()
	}
	if got := counter("gocaptcha_verify_success_total"); got != 7 {
		t.Fatalf("expected verify success 7, got %v", got)
	}
	if got := counter("gocaptcha_verify_failure_total"); got != 0 {
		t.Fatalf("expected verify failure 0, got %v", got)
	}
	if got := counter("gocaptcha_audit_dropped_total"); got != 2 {
		t.Fatalf("expected audit dropped 2, got %v", got)
	}
	if got := families["gocaptcha_storage_degraded"].GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Fatalf("expected degraded gauge 1, got %v", got)
	}

	mf, ok := families["gocaptcha_verify_latency_seconds"]
	if !ok {
		t.Fatal("expected latency histogram family")
	}
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 36 {
		t.Fatalf("expected 36 samples, got %d", h.GetSampleCount())
	}
	buckets := h.GetBucket()
	if len(buckets) != 7 {
		t.Fatalf("expected 7 finite buckets, got %d", len(buckets))
	}
	if buckets[0].GetUpperBound() != 0.005 || buckets[0].GetCumulativeCount() != 1 {
		t.Fatalf("unexpected first bucket %v", buckets[0])
	}
	if buckets[6].GetCumulativeCount() != 28 {
		t.Fatalf("expected 28 samples under 0.5s, got %d", buckets[6].GetCumulativeCount())
	}
}

func TestCollectorAgainstEngine(t *testing.T) {
	cfg := goCaptcha.DefaultConfig()
	cfg.Storage.JanitorInterval = 0
	engine, err := goCaptcha.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.CreateSession(goCaptcha.WithClientIP(t.Context(), "192.0.2.1")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	families := gather(t, NewCollector(engine))
	mf, ok := families["gocaptcha_session_created_total"]
	if !ok {
		t.Fatal("missing session counter")
	}
	if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected session counter 1, got %v", got)
	}
	if got := families["gocaptcha_storage_degraded"].GetMetric()[0].GetGauge().GetValue(); got != 0 {
		t.Fatalf("expected healthy storage, got %v", got)
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goCaptcha.MetricsSnapshot{
			Counters:   map[goCaptcha.MetricID]uint64{goCaptcha.MetricTokenMinted: 1},
			Histograms: map[goCaptcha.MetricID][]uint64{},
		},
	})

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "gocaptcha_token_minted_total 1") {
		t.Fatalf("expected token counter in output, got:\n%s", body)
	}
}
