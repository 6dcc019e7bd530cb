// Package metrics exposes Prometheus collectors for uploads and the receiver.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nebula_upload"

// Metrics holds the upload and receiver collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	uploadsStarted  prometheus.Counter
	uploadsFinished *prometheus.CounterVec
	uploadsRejected prometheus.Counter
	recordsRemoved  prometheus.Counter
	uploadDuration  *prometheus.HistogramVec
	uploadsInFlight prometheus.Gauge

	receivedFiles prometheus.Counter
	receivedBytes prometheus.Counter
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// Default returns the package-level instance registered with the global
// Prometheus registry. Collectors are created once so repeated callers do
// not panic on duplicate registration.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNew(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNew constructs Metrics registered with reg. Tests pass a fresh
// prometheus.NewRegistry(). Registration errors other than an identical
// collector already being present panic.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		uploadsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "uploads_started_total",
			Help:      "Uploads that created a record and began transmitting.",
		}),
		uploadsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "uploads_finished_total",
			Help:      "Uploads that reached a terminal status.",
		}, []string{"status"}),
		uploadsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "uploads_rejected_total",
			Help:      "Files skipped by the before-upload check.",
		}),
		recordsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "records_removed_total",
			Help:      "Records removed from the list.",
		}),
		uploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "upload_duration_seconds",
			Help:      "Time from record creation to terminal status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		uploadsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "uploads_in_flight",
			Help:      "Uploads currently transmitting.",
		}),
		receivedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receiver",
			Name:      "files_stored_total",
			Help:      "Files stored by the receiver.",
		}),
		receivedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receiver",
			Name:      "bytes_stored_total",
			Help:      "Bytes stored by the receiver.",
		}),
	}

	m.uploadsStarted = register(reg, m.uploadsStarted)
	m.uploadsFinished = register(reg, m.uploadsFinished)
	m.uploadsRejected = register(reg, m.uploadsRejected)
	m.recordsRemoved = register(reg, m.recordsRemoved)
	m.uploadDuration = register(reg, m.uploadDuration)
	m.uploadsInFlight = register(reg, m.uploadsInFlight)
	m.receivedFiles = register(reg, m.receivedFiles)
	m.receivedBytes = register(reg, m.receivedBytes)
	return m
}

// register adds c to reg, reusing an existing identical collector.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// UploadStarted records a transmission start.
func (m *Metrics) UploadStarted() {
	if m == nil {
		return
	}
	m.uploadsStarted.Inc()
	m.uploadsInFlight.Inc()
}

// UploadFinished records a terminal status and the time it took.
func (m *Metrics) UploadFinished(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.uploadsInFlight.Dec()
	m.uploadsFinished.WithLabelValues(status).Inc()
	m.uploadDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// UploadRejected records a file skipped by the before-upload check.
func (m *Metrics) UploadRejected() {
	if m == nil {
		return
	}
	m.uploadsRejected.Inc()
}

// RecordRemoved records an explicit removal.
func (m *Metrics) RecordRemoved() {
	if m == nil {
		return
	}
	m.recordsRemoved.Inc()
}

// FileStored records a file written by the receiver.
func (m *Metrics) FileStored(size int64) {
	if m == nil {
		return
	}
	m.receivedFiles.Inc()
	m.receivedBytes.Add(float64(size))
}
