package session

import "testing"

// TestHappyPathTransitions walks the full connect lifecycle forward.
func TestHappyPathTransitions(t *testing.T) {
	steps := []struct {
		from, to ConnState
	}{
		{StateDisconnected, StateConnecting},
		{StateConnecting, StateConnected},
		{StateConnected, StateAuthenticating},
		{StateAuthenticating, StateAuthenticated},
	}
	for _, s := range steps {
		if !validTransition(s.from, s.to) {
			t.Errorf("%s -> %s should be valid", s.from, s.to)
		}
	}
}

// TestFailureReachableFromLiveStates checks every non-terminal stage can
// fail with a recorded reason.
func TestFailureReachableFromLiveStates(t *testing.T) {
	for _, from := range []ConnState{StateConnecting, StateConnected, StateAuthenticating, StateAuthenticated} {
		if !validTransition(from, StateFailed) {
			t.Errorf("%s -> failed should be valid", from)
		}
	}
}

// TestDropGoesToDisconnectedNotFailed: an unexpected transport drop is an
// event to react to, not a client error, so it lands in disconnected.
func TestDropGoesToDisconnectedNotFailed(t *testing.T) {
	for _, from := range []ConnState{StateConnected, StateAuthenticating, StateAuthenticated} {
		if !validTransition(from, StateDisconnected) {
			t.Errorf("%s -> disconnected should be valid", from)
		}
	}
}

// TestRetryIsExplicit: both resting states exit only through connecting.
func TestRetryIsExplicit(t *testing.T) {
	if !validTransition(StateFailed, StateConnecting) {
		t.Error("failed -> connecting should be valid, callers decide to retry")
	}
	if !validTransition(StateDisconnected, StateConnecting) {
		t.Error("disconnected -> connecting should be valid")
	}
	if validTransition(StateFailed, StateAuthenticated) {
		t.Error("failed -> authenticated should be invalid, no skipping the handshake")
	}
}

// TestNoSkippingForward: protocol progress is one step at a time.
func TestNoSkippingForward(t *testing.T) {
	invalid := []struct {
		from, to ConnState
	}{
		{StateDisconnected, StateConnected},
		{StateDisconnected, StateAuthenticated},
		{StateConnecting, StateAuthenticating},
		{StateConnecting, StateAuthenticated},
		{StateConnected, StateAuthenticated},
	}
	for _, s := range invalid {
		if validTransition(s.from, s.to) {
			t.Errorf("%s -> %s should be invalid", s.from, s.to)
		}
	}
}

func TestStateStrings(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range []ConnState{
		StateDisconnected, StateConnecting, StateConnected,
		StateAuthenticating, StateAuthenticated, StateFailed,
	} {
		name := s.String()
		if name == "" || name == "unknown" {
			t.Errorf("state %d has no proper string form", s)
		}
		if seen[name] {
			t.Errorf("duplicate state string: %s", name)
		}
		seen[name] = true
	}
}
