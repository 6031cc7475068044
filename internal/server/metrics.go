package server

import "github.com/prometheus/client_golang/prometheus"

type relayMetrics struct {
	connections prometheus.Gauge
	frames      *prometheus.CounterVec
}

func newRelayMetrics(reg prometheus.Registerer) *relayMetrics {
	m := &relayMetrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "whisper_relay_connections",
			Help: "Open websocket connections.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whisper_relay_frames_total",
			Help: "Inbound frames by envelope code.",
		}, []string{"code"}),
	}
	reg.MustRegister(m.connections, m.frames)
	return m
}
