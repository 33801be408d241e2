package chatauth

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsIncAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricChallengePassed)
	m.Inc(MetricChallengePassed)
	m.Inc(MetricChallengeFailed)

	if got := m.Value(MetricChallengePassed); got != 2 {
		t.Fatalf("Value(passed) = %d, want 2", got)
	}

	snap := m.Snapshot()
	if snap.Counters[MetricChallengePassed] != 2 {
		t.Fatalf("snapshot passed = %d, want 2", snap.Counters[MetricChallengePassed])
	}
	if snap.Counters[MetricChallengeFailed] != 1 {
		t.Fatalf("snapshot failed = %d, want 1", snap.Counters[MetricChallengeFailed])
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricChallengePassed)
	if got := m.Value(MetricChallengePassed); got != 0 {
		t.Fatalf("disabled metrics recorded %d increments", got)
	}

	snap := m.Snapshot()
	if len(snap.Counters) != 0 {
		t.Fatal("disabled snapshot must be empty")
	}
}

func TestMetricsLatencyHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricSessionCheckLatency, 3*time.Microsecond)
	m.Observe(MetricSessionCheckLatency, 40*time.Microsecond)
	m.Observe(MetricSessionCheckLatency, 2*time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricSessionCheckLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("bucket count = %d, want %d", len(buckets), histBucketCount)
	}
	if buckets[0] != 1 || buckets[3] != 1 || buckets[7] != 1 {
		t.Fatalf("bucket layout = %v", buckets)
	}

	// Non-latency IDs never land in a histogram.
	m.Observe(MetricChallengePassed, time.Microsecond)
	snap = m.Snapshot()
	if _, ok := snap.Histograms[MetricChallengePassed]; ok {
		t.Fatal("counter metric must not grow a histogram")
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricTokenIssued)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricTokenIssued); got != workers*perWorker {
		t.Fatalf("Value = %d, want %d", got, workers*perWorker)
	}
}

func TestMetricsNilSafety(t *testing.T) {
	var m *Metrics

	m.Inc(MetricTokenIssued)
	m.Observe(MetricSessionCheckLatency, time.Millisecond)
	if m.Value(MetricTokenIssued) != 0 {
		t.Fatal("nil metrics must read zero")
	}
	if m.Enabled() {
		t.Fatal("nil metrics must report disabled")
	}
}
