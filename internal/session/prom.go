package session

import "github.com/prometheus/client_golang/prometheus"

// PromMetrics exports session counters to Prometheus.
type PromMetrics struct {
	connects     prometheus.Counter
	dialFailures prometheus.Counter
	framesIn     *prometheus.CounterVec
	framesOut    *prometheus.CounterVec
}

// NewPromMetrics registers session metrics on reg.
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	m := &PromMetrics{
		connects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "whisper_session_connects_total",
			Help: "Connections established.",
		}),
		dialFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "whisper_session_dial_failures_total",
			Help: "Connection attempts that failed.",
		}),
		framesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whisper_session_frames_received_total",
			Help: "Inbound frames by result.",
		}, []string{"result"}),
		framesOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whisper_session_frames_sent_total",
			Help: "Outbound frames by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.connects, m.dialFailures, m.framesIn, m.framesOut)
	return m
}

func (m *PromMetrics) Connected()     { m.connects.Inc() }
func (m *PromMetrics) DialFailed()    { m.dialFailures.Inc() }
func (m *PromMetrics) FrameReceived() { m.framesIn.WithLabelValues("delivered").Inc() }
func (m *PromMetrics) FrameDropped()  { m.framesIn.WithLabelValues("dropped").Inc() }
func (m *PromMetrics) Sent()          { m.framesOut.WithLabelValues("written").Inc() }
func (m *PromMetrics) SendDropped()   { m.framesOut.WithLabelValues("dropped").Inc() }
