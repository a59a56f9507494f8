package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementCounter(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("webhook_requests_total", nil, "webhook deliveries")
	r.IncrementCounter("webhook_requests_total", nil, "webhook deliveries")
	r.AddToCounter("webhook_requests_total", 3, nil, "webhook deliveries")

	all := r.GetAllMetrics()
	counters := all["counters"].(map[string]*Metric)
	require.Contains(t, counters, "webhook_requests_total")
	assert.Equal(t, float64(5), counters["webhook_requests_total"].Value)
}

func TestCounterLabelsSeparateSeries(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("webhook_outcomes_total", map[string]string{"outcome": "created"}, "")
	r.IncrementCounter("webhook_outcomes_total", map[string]string{"outcome": "duplicate"}, "")
	r.IncrementCounter("webhook_outcomes_total", map[string]string{"outcome": "created"}, "")

	counters := r.GetAllMetrics()["counters"].(map[string]*Metric)
	assert.Equal(t, float64(2), counters["webhook_outcomes_total_outcome:created"].Value)
	assert.Equal(t, float64(1), counters["webhook_outcomes_total_outcome:duplicate"].Value)
}

func TestSetGauge(t *testing.T) {
	r := NewRegistry()

	r.SetGauge("notify_clients", 3, nil, "connected clients")
	r.SetGauge("notify_clients", 1, nil, "connected clients")

	gauges := r.GetAllMetrics()["gauges"].(map[string]*Metric)
	require.Contains(t, gauges, "notify_clients")
	assert.Equal(t, float64(1), gauges["notify_clients"].Value)
}

func TestRecordTimer(t *testing.T) {
	r := NewRegistry()

	r.RecordTimer("webhook_processing_duration", 10*time.Millisecond, nil, "")
	r.RecordTimer("webhook_processing_duration", 30*time.Millisecond, nil, "")

	timers := r.GetAllMetrics()["timers"].(map[string]*TimerMetric)
	timer := timers["webhook_processing_duration"]
	require.NotNil(t, timer)
	assert.Equal(t, int64(2), timer.Count)
	assert.InDelta(t, 10.0, timer.Min, 0.5)
	assert.InDelta(t, 30.0, timer.Max, 0.5)
	assert.InDelta(t, 20.0, timer.Average, 0.5)
}

func TestTimerPercentiles(t *testing.T) {
	r := NewRegistry()

	for i := 1; i <= 100; i++ {
		r.RecordTimer("op_duration", time.Duration(i)*time.Millisecond, nil, "")
	}

	timers := r.GetAllMetrics()["timers"].(map[string]*TimerMetric)
	timer := timers["op_duration"]
	require.NotNil(t, timer)
	assert.InDelta(t, 95.0, timer.P95, 2.0)
	assert.InDelta(t, 99.0, timer.P99, 2.0)
}

func TestGetAllMetricsIncludesUptime(t *testing.T) {
	r := NewRegistry()

	all := r.GetAllMetrics()
	assert.Contains(t, all, "uptime_ms")
	assert.Contains(t, all, "timestamp")
}

func TestGlobalRegistryHelpers(t *testing.T) {
	IncrementCounter("test_global_counter", nil, "")
	SetGauge("test_global_gauge", 7, nil, "")
	RecordTimer("test_global_timer", time.Millisecond, nil, "")

	all := GetAllMetrics()
	counters := all["counters"].(map[string]*Metric)
	assert.Contains(t, counters, "test_global_counter")
}

func TestConcurrentUpdates(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.IncrementCounter("concurrent_total", nil, "")
			}
		}()
	}
	wg.Wait()

	counters := r.GetAllMetrics()["counters"].(map[string]*Metric)
	assert.Equal(t, float64(1000), counters["concurrent_total"].Value)
}
