package session

// ConnState represents where the connection is in its protocol lifecycle.
// The order is protocol progress, not time: a connection may fall back to
// StateDisconnected from anywhere, but it can only move forward one step at
// a time.
type ConnState int

const (
	StateDisconnected   ConnState = iota // no transport, the initial and post-drop state
	StateConnecting                      // dial in flight
	StateConnected                       // transport up, server not yet trusting us
	StateAuthenticating                  // authenticate sent, waiting for the verdict
	StateAuthenticated                   // fully trusted, commands are valid
	StateFailed                          // something went wrong, reason recorded, caller decides on retry
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// validTransition defines which state changes are legal.
//
// Two rules shape the table. A failure at any live stage lands in
// StateFailed with a recorded reason; an unexpected transport drop lands in
// StateDisconnected instead, because a drop is an event to react to, not an
// error the client made. Both StateFailed and StateDisconnected exit only
// through an explicit Connect.
func validTransition(from, to ConnState) bool {
	allowed := map[ConnState][]ConnState{
		StateDisconnected:   {StateConnecting},
		StateConnecting:     {StateConnected, StateFailed, StateDisconnected},
		StateConnected:      {StateAuthenticating, StateFailed, StateDisconnected},
		StateAuthenticating: {StateAuthenticated, StateFailed, StateDisconnected},
		StateAuthenticated:  {StateDisconnected, StateFailed},
		StateFailed:         {StateConnecting},
	}

	for _, valid := range allowed[from] {
		if to == valid {
			return true
		}
	}
	return false
}
