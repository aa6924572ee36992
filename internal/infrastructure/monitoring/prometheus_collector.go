package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	channelsActive        prometheus.Gauge
	channelsCreatedTotal  prometheus.Counter
	channelsDisposedTotal *prometheus.CounterVec
	trustedUsersTotal     prometheus.Gauge
	rotationsTotal        prometheus.Counter

	gatewayRequestsTotal   *prometheus.CounterVec
	gatewayRequestDuration prometheus.Histogram
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		channelsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voicekeeper_channels_active",
			Help: "Number of live temp voice channels",
		}),

		channelsCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicekeeper_channels_created_total",
			Help: "Total number of temp voice channels created",
		}),

		channelsDisposedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voicekeeper_channels_disposed_total",
			Help: "Total number of temp voice channels removed",
		}, []string{"reason"}),

		trustedUsersTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voicekeeper_trusted_users_total",
			Help: "Trust-list entries across all live channels",
		}),

		rotationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicekeeper_rotations_total",
			Help: "Total number of completed daily channel rotations",
		}),

		gatewayRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voicekeeper_gateway_requests_total",
			Help: "Platform gateway calls by operation and outcome",
		}, []string{"op", "outcome"}),

		gatewayRequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicekeeper_gateway_request_duration_seconds",
			Help:    "Duration of platform gateway calls",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
	}
}

func (p *PrometheusCollector) RecordChannelCreated() {
	p.channelsCreatedTotal.Inc()
	p.channelsActive.Inc()
}

func (p *PrometheusCollector) RecordChannelDisposed(reason string) {
	p.channelsDisposedTotal.WithLabelValues(reason).Inc()
	p.channelsActive.Dec()
}

func (p *PrometheusCollector) RecordTrustChange(delta int) {
	p.trustedUsersTotal.Add(float64(delta))
}

func (p *PrometheusCollector) RecordRotation() {
	p.rotationsTotal.Inc()
}

func (p *PrometheusCollector) RecordGatewayRequest(op string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.gatewayRequestsTotal.WithLabelValues(op, outcome).Inc()
	p.gatewayRequestDuration.Observe(duration.Seconds())
}
