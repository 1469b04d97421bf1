package session

// DefaultWindowSize bounds how far ahead of the last delivered frame an
// inbound sequence number may run before we call it a protocol violation.
const DefaultWindowSize uint64 = 64

// Verdict is what the window returns when asked whether an inbound frame
// should be delivered.
type Verdict int

const (
	Deliver       Verdict = iota // frame is new, deliver it
	DropDuplicate                // already saw this one, discard
	DropViolation                // too far ahead, protocol violation
)

// Window is duplicate detection for inbound frames. The transport delivers
// frames in order, so any sequence number at or below the last delivered one
// is a replay. Frames with seq zero come from servers that do not sequence
// and bypass the check entirely.
//
// There is deliberately no outbound counterpart with retransmission: the
// protocol has no resume, a reconnect starts a fresh session with fresh
// numbering.
type Window struct {
	lastDelivered uint64
	size          uint64
}

// NewWindow creates a window with the default size.
func NewWindow() *Window {
	return &Window{size: DefaultWindowSize}
}

// Validate classifies one inbound frame.
func (w *Window) Validate(seq uint64) Verdict {
	if seq == 0 {
		return Deliver // unsequenced server, nothing to check
	}
	if seq <= w.lastDelivered {
		return DropDuplicate
	}
	// bounding the jump protects against a hostile or broken server
	// spraying arbitrary sequence numbers
	if seq > w.lastDelivered+w.size {
		return DropViolation
	}
	w.lastDelivered = seq
	return Deliver
}

// LastDelivered returns the highest sequence number delivered so far.
func (w *Window) LastDelivered() uint64 {
	return w.lastDelivered
}

// Reset clears the window. Called when a new connection is established,
// because the server numbers frames per connection.
func (w *Window) Reset() {
	w.lastDelivered = 0
}
