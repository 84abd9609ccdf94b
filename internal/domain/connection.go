package domain

// ConnectionState is the feed client's view of its socket.
type ConnectionState int

const (
	StateConnecting ConnectionState = iota + 1
	StateConnected
	StateDisconnected
	StateError
)

// String returns the status badge label.
func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
