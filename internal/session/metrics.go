package session

// Metrics receives session counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// Connected is called once per established connection.
	Connected()
	// DialFailed is called for each failed connection attempt.
	DialFailed()
	// FrameReceived is called for each frame delivered to OnMessage.
	FrameReceived()
	// FrameDropped is called for each inbound frame that failed to decrypt.
	FrameDropped()
	// Sent is called for each frame written to the socket.
	Sent()
	// SendDropped is called for each send refused while not connected.
	SendDropped()
}

type nopMetrics struct{}

func (nopMetrics) Connected()     {}
func (nopMetrics) DialFailed()    {}
func (nopMetrics) FrameReceived() {}
func (nopMetrics) FrameDropped()  {}
func (nopMetrics) Sent()          {}
func (nopMetrics) SendDropped()   {}
