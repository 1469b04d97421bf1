package transport

import (
	"encoding/json"
	"errors"
)

// ErrTransportClosed is returned when you try to send on a closed transport.
// Named errors like this let callers check the exact cause with errors.Is()
// instead of comparing raw strings.
var ErrTransportClosed = errors.New("transport closed")

// Event is what flows through a transport: one named protocol event plus an
// opaque payload. Seq is the sender's monotonic frame number; a Seq of zero
// means the sender does not sequence its frames and the receiver must skip
// duplicate detection for it. The transport moves events, it never
// interprets the payload.
type Event struct {
	Seq     uint64          `json:"seq,omitempty"`
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DisconnectReason tells the session layer why a transport closed.
// This feeds directly into the session's last-error reporting, so a log line
// can say whether a drop was a network fault, a timeout, or a clean close.
type DisconnectReason int

const (
	ReasonUnknown      DisconnectReason = iota // catch-all, should be rare
	ReasonNetworkError                         // underlying connection failed
	ReasonTimeout                              // no activity within deadline
	ReasonClosedClean                          // graceful shutdown by either side
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonNetworkError:
		return "network_error"
	case ReasonTimeout:
		return "timeout"
	case ReasonClosedClean:
		return "closed_clean"
	default:
		return "unknown"
	}
}

// DisconnectEvent is sent on the channel returned by Disconnected().
// It bundles the reason with an optional error for debugging.
type DisconnectEvent struct {
	Reason DisconnectReason
	Err    error // nil on clean close, populated on errors
}

// Adapter is the contract every transport must satisfy.
// The session layer only ever talks to this interface; it never imports
// websocket, tcp, or anything concrete. Same session logic, swappable
// backends.
type Adapter interface {
	// Send delivers an event to the remote side.
	// Returns ErrTransportClosed if the transport is no longer active.
	Send(ev Event) error

	// Receive returns a channel that emits incoming events.
	// The channel is closed when the transport closes.
	// Callers should range over this channel and stop when it closes.
	Receive() <-chan Event

	// Disconnected returns a channel that emits exactly one DisconnectEvent
	// when the transport closes, for any reason.
	// This is how the session layer knows the connection dropped.
	Disconnected() <-chan DisconnectEvent

	// Close shuts down the transport cleanly.
	// Safe to call multiple times, subsequent calls are no-ops.
	Close() error
}
