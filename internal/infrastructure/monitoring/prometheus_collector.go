package monitoring

import (
	"streamcast/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector records orchestrator measurements for /metrics.
type PrometheusCollector struct {
	sessionsActive  prometheus.Gauge
	encoderLaunches prometheus.Counter
	reconnects      *prometheus.CounterVec
	viewers         *prometheus.GaugeVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		sessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streamcast_sessions_active",
			Help: "Number of sessions under active supervision",
		}),

		encoderLaunches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamcast_encoder_launches_total",
			Help: "Total encoder processes launched, including relaunches",
		}),

		reconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamcast_reconnects_total",
			Help: "Total reconnect attempts per broadcast",
		}, []string{"broadcast_id"}),

		viewers: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "streamcast_concurrent_viewers",
			Help: "Last reported concurrent viewer count per broadcast",
		}, []string{"broadcast_id"}),
	}
}

var _ ports.MetricsRecorder = (*PrometheusCollector)(nil)

func (c *PrometheusCollector) SessionStarted() {
	c.sessionsActive.Inc()
}

func (c *PrometheusCollector) SessionEnded() {
	c.sessionsActive.Dec()
}

func (c *PrometheusCollector) EncoderLaunched() {
	c.encoderLaunches.Inc()
}

func (c *PrometheusCollector) ReconnectAttempted(broadcastID string) {
	c.reconnects.WithLabelValues(broadcastID).Inc()
}

func (c *PrometheusCollector) ViewerCount(broadcastID string, viewers float64) {
	c.viewers.WithLabelValues(broadcastID).Set(viewers)
}
