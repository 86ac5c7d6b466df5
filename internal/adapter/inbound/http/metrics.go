package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sentinel-Gate/filegate/internal/domain/identity"
	"github.com/Sentinel-Gate/filegate/internal/port/outbound"
)

const namespace = "filegate"

// Metrics holds all Prometheus metrics for filegate.
// It implements outbound.MetricsRecorder for the connection handler.
type Metrics struct {
	ConnectionsRejected *prometheus.CounterVec
	SessionsTotal       prometheus.Counter
	ActiveSessions      prometheus.Gauge
	CommandsTotal       *prometheus.CounterVec
	CommandDuration     *prometheus.HistogramVec
	FileBytesSentTotal  prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ConnectionsRejected: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_rejected_total",
				Help:      "Connections closed before becoming an active session",
			},
			[]string{"reason"}, // reason=busy/handshake
		),
		SessionsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Sessions that completed the handshake",
			},
		),
		ActiveSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Number of active sessions",
			},
		),
		CommandsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Commands handled, by command",
			},
			[]string{"command"}, // exit/status/list/print/echo
		),
		CommandDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Time spent answering a command",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		FileBytesSentTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "file_bytes_sent_total",
				Help:      "File content bytes streamed to clients",
			},
		),
	}
}

// RegisterOccupancy exposes slot usage read live from the allocator.
func RegisterOccupancy(reg prometheus.Registerer, allocator identity.Allocator) {
	promauto.With(reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slots_in_use",
			Help:      "Client identity slots currently held",
		},
		func() float64 { return float64(allocator.InUse()) },
	)
	promauto.With(reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slots_capacity",
			Help:      "Maximum number of concurrent clients",
		},
		func() float64 { return float64(allocator.Capacity()) },
	)
}

// ConnectionRejected implements outbound.MetricsRecorder.
func (m *Metrics) ConnectionRejected(reason string) {
	m.ConnectionsRejected.WithLabelValues(reason).Inc()
}

// SessionOpened implements outbound.MetricsRecorder.
func (m *Metrics) SessionOpened() {
	m.SessionsTotal.Inc()
	m.ActiveSessions.Inc()
}

// SessionClosed implements outbound.MetricsRecorder.
func (m *Metrics) SessionClosed() {
	m.ActiveSessions.Dec()
}

// CommandHandled implements outbound.MetricsRecorder.
func (m *Metrics) CommandHandled(command string, d time.Duration) {
	m.CommandsTotal.WithLabelValues(command).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// FileBytesSent implements outbound.MetricsRecorder.
func (m *Metrics) FileBytesSent(n int64) {
	m.FileBytesSentTotal.Add(float64(n))
}

var _ outbound.MetricsRecorder = (*Metrics)(nil)
