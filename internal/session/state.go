package session

// State is the connection state owned by a Manager.
type State int32

const (
	// Disconnected means no connection; a retry may be pending.
	Disconnected State = iota
	// Connecting means a dial is in flight.
	Connecting
	// Connected means the socket is open and setup has been queued.
	Connected
	// Stopped is terminal: Stop was called.
	Stopped
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
