package ports

// MetricsRecorder receives lifecycle events from the core services. The
// Prometheus collector implements it; a nil recorder disables metrics.
type MetricsRecorder interface {
	RecordChannelCreated()
	RecordChannelDisposed(reason string)
	RecordTrustChange(delta int)
	RecordRotation()
}
