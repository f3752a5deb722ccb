package runtime

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the stage-level counters of the sample stream:
// accepted and rejected samples, inference outcomes, and sink appends.
type PipelineMetrics struct {
	mu sync.RWMutex

	// Per-handler counts
	handlerCounts map[string]*PipelineHandlerMetrics

	// Prometheus collectors
	samplesTotal      *prometheus.CounterVec
	rejectedTotal     *prometheus.CounterVec
	inferenceFailures *prometheus.CounterVec
	sinkRowsTotal     *prometheus.CounterVec
	sinkFailures      *prometheus.CounterVec
	inferenceSeconds  *prometheus.HistogramVec

	registerer prometheus.Registerer
	registered bool
}

// PipelineHandlerMetrics holds counters for a single handler.
type PipelineHandlerMetrics struct {
	SamplesSeen       uint64    `json:"samples_seen"`
	SamplesRejected   uint64    `json:"samples_rejected"`
	InferenceFailures uint64    `json:"inference_failures"`
	SinkRows          uint64    `json:"sink_rows"`
	SinkFailures      uint64    `json:"sink_failures"`
	LastUpdatedAt     time.Time `json:"last_updated_at"`
}

// PipelineMetricsSnapshot provides a point-in-time view of pipeline metrics.
type PipelineMetricsSnapshot struct {
	TotalSamples           uint64                             `json:"total_samples"`
	TotalRejected          uint64                             `json:"total_rejected"`
	TotalInferenceFailures uint64                             `json:"total_inference_failures"`
	TotalSinkRows          uint64                             `json:"total_sink_rows"`
	HandlerMetrics         map[string]*PipelineHandlerMetrics `json:"handler_metrics"`
	CollectedAt            time.Time                          `json:"collected_at"`
}

func newPipelineCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "irisflow",
			Subsystem: "pipeline",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewPipelineMetrics creates a new pipeline metrics collector.
func NewPipelineMetrics(registerer prometheus.Registerer) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &PipelineMetrics{
		handlerCounts: make(map[string]*PipelineHandlerMetrics),
		registerer:    registerer,
		samplesTotal:  newPipelineCounterVec("samples_total", "Total number of samples consumed from the transport", []string{"handler"}),
		rejectedTotal: newPipelineCounterVec("rejected_total", "Total number of malformed samples dropped before scoring", []string{"handler"}),
		inferenceFailures: newPipelineCounterVec("inference_failures_total",
			"Total number of scoring attempts that degraded to the error sentinel", []string{"handler"}),
		sinkRowsTotal: newPipelineCounterVec("sink_rows_total", "Total number of rows appended to the analytical table", []string{"handler"}),
		sinkFailures:  newPipelineCounterVec("sink_failures_total", "Total number of failed sink appends", []string{"handler"}),
		inferenceSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "irisflow",
				Subsystem: "pipeline",
				Name:      "inference_duration_seconds",
				Help:      "Wall-clock duration of scoring requests, including failed ones",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"handler"},
		),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *PipelineMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.samplesTotal,
		m.rejectedTotal,
		m.inferenceFailures,
		m.sinkRowsTotal,
		m.sinkFailures,
		m.inferenceSeconds,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// RecordSample records a sample arriving at a handler.
func (m *PipelineMetrics) RecordSample(handler string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := m.getOrCreateHandlerMetrics(handler)
	counts.SamplesSeen++
	counts.LastUpdatedAt = time.Now()

	m.samplesTotal.WithLabelValues(handler).Inc()
}

// RecordRejected records a malformed sample being dropped.
func (m *PipelineMetrics) RecordRejected(handler string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := m.getOrCreateHandlerMetrics(handler)
	counts.SamplesRejected++
	counts.LastUpdatedAt = time.Now()

	m.rejectedTotal.WithLabelValues(handler).Inc()
}

// RecordInference records one scoring attempt with its wall-clock duration.
// failed is true when the attempt degraded to the error sentinel.
func (m *PipelineMetrics) RecordInference(handler string, duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := m.getOrCreateHandlerMetrics(handler)
	if failed {
		counts.InferenceFailures++
		m.inferenceFailures.WithLabelValues(handler).Inc()
	}
	counts.LastUpdatedAt = time.Now()

	m.inferenceSeconds.WithLabelValues(handler).Observe(duration.Seconds())
}

// RecordSinkWrite records the outcome of one sink append.
func (m *PipelineMetrics) RecordSinkWrite(handler string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := m.getOrCreateHandlerMetrics(handler)
	if err != nil {
		counts.SinkFailures++
		m.sinkFailures.WithLabelValues(handler).Inc()
	} else {
		counts.SinkRows++
		m.sinkRowsTotal.WithLabelValues(handler).Inc()
	}
	counts.LastUpdatedAt = time.Now()
}

// GetSnapshot returns a point-in-time snapshot of all pipeline metrics.
func (m *PipelineMetrics) GetSnapshot() PipelineMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := PipelineMetricsSnapshot{
		HandlerMetrics: make(map[string]*PipelineHandlerMetrics),
		CollectedAt:    time.Now(),
	}

	for handler, counts := range m.handlerCounts {
		clone := *counts
		snapshot.HandlerMetrics[handler] = &clone
		snapshot.TotalSamples += counts.SamplesSeen
		snapshot.TotalRejected += counts.SamplesRejected
		snapshot.TotalInferenceFailures += counts.InferenceFailures
		snapshot.TotalSinkRows += counts.SinkRows
	}

	return snapshot
}

// GetHandlerMetrics returns metrics for a specific handler.
func (m *PipelineMetrics) GetHandlerMetrics(handler string) *PipelineHandlerMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if counts, ok := m.handlerCounts[handler]; ok {
		clone := *counts
		return &clone
	}
	return nil
}

func (m *PipelineMetrics) getOrCreateHandlerMetrics(handler string) *PipelineHandlerMetrics {
	if counts, ok := m.handlerCounts[handler]; ok {
		return counts
	}
	counts := &PipelineHandlerMetrics{}
	m.handlerCounts[handler] = counts
	return counts
}

// Reset resets all metrics (useful for testing).
func (m *PipelineMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlerCounts = make(map[string]*PipelineHandlerMetrics)
	m.samplesTotal.Reset()
	m.rejectedTotal.Reset()
	m.inferenceFailures.Reset()
	m.sinkRowsTotal.Reset()
	m.sinkFailures.Reset()
	m.inferenceSeconds.Reset()
}
