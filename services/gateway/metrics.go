package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the pipeline's instrumentation. Frame outcomes are labelled
// with the errcode string ("ok" for forwarded frames), so every drop reason
// in the error taxonomy is countable.
type Metrics struct {
	Frames    *prometheus.CounterVec
	Forwarded prometheus.Counter
	SinkError *prometheus.CounterVec
	RSSI      *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sensilo",
			Subsystem: "gateway",
			Name:      "frames_total",
			Help:      "Captured frames by processing outcome.",
		}, []string{"result"}),
		Forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sensilo",
			Subsystem: "gateway",
			Name:      "measurements_forwarded_total",
			Help:      "Measurements handed to the sink.",
		}),
		SinkError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sensilo",
			Subsystem: "gateway",
			Name:      "sink_errors_total",
			Help:      "Failed sink submissions by error code.",
		}, []string{"code"}),
		RSSI: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sensilo",
			Subsystem: "gateway",
			Name:      "rssi_dbm",
			Help:      "Last observed signal strength per device.",
		}, []string{"device"}),
	}
	if reg != nil {
		reg.MustRegister(m.Frames, m.Forwarded, m.SinkError, m.RSSI)
	}
	return m
}
