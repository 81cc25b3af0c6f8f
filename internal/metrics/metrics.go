// Package metrics exports upload pipeline telemetry to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "roadreport_upload"

// Recorder is what the pipeline reports to. A nil *Metrics is a valid no-op
// Recorder.
type Recorder interface {
	ObserveStage(stage string, duration time.Duration, err error)
	RecordUpload(outcome string, sizeBytes int64)
	RecordAuditFailure()
}

type Metrics struct {
	stageDuration *prometheus.HistogramVec
	uploads       *prometheus.CounterVec
	uploadBytes   prometheus.Counter
	auditFailures prometheus.Counter
}

// New registers the upload collectors on reg. Collectors already present on
// reg are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each upload pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage", "status"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload invocations by terminal outcome.",
		}, []string{"outcome"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Payload bytes successfully stored.",
		}),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Audit records that could not be persisted.",
		}),
	}

	if err := register(reg, &m.stageDuration); err != nil {
		return nil, err
	}
	if err := register(reg, &m.uploads); err != nil {
		return nil, err
	}
	if err := register(reg, &m.uploadBytes); err != nil {
		return nil, err
	}
	if err := register(reg, &m.auditFailures); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				*c = existing
				return nil
			}
		}
		return fmt.Errorf("register upload metric: %w", err)
	}
	return nil
}

func (m *Metrics) ObserveStage(stage string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
}

func (m *Metrics) RecordUpload(outcome string, sizeBytes int64) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
	if sizeBytes > 0 {
		m.uploadBytes.Add(float64(sizeBytes))
	}
}

func (m *Metrics) RecordAuditFailure() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

var _ Recorder = (*Metrics)(nil)
