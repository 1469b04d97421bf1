package session

import "testing"

func TestWindowDeliversInOrder(t *testing.T) {
	w := NewWindow()

	for seq := uint64(1); seq <= 5; seq++ {
		if v := w.Validate(seq); v != Deliver {
			t.Errorf("seq %d: expected Deliver, got %v", seq, v)
		}
	}
	if w.LastDelivered() != 5 {
		t.Errorf("expected lastDelivered 5, got %d", w.LastDelivered())
	}
}

// TestWindowDropsDuplicates: the same frame replayed must not be delivered
// twice, that's the whole point.
func TestWindowDropsDuplicates(t *testing.T) {
	w := NewWindow()

	w.Validate(1)
	w.Validate(2)

	if v := w.Validate(2); v != DropDuplicate {
		t.Errorf("replayed seq 2: expected DropDuplicate, got %v", v)
	}
	if v := w.Validate(1); v != DropDuplicate {
		t.Errorf("replayed seq 1: expected DropDuplicate, got %v", v)
	}
	if w.LastDelivered() != 2 {
		t.Errorf("duplicates must not move the window, got %d", w.LastDelivered())
	}
}

// TestWindowRejectsFarAhead: a hostile server spraying huge sequence
// numbers is a violation, not a delivery.
func TestWindowRejectsFarAhead(t *testing.T) {
	w := NewWindow()
	w.Validate(1)

	if v := w.Validate(1 + DefaultWindowSize + 1); v != DropViolation {
		t.Errorf("expected DropViolation, got %v", v)
	}
	// the edge of the window is still acceptable
	if v := w.Validate(1 + DefaultWindowSize); v != Deliver {
		t.Errorf("edge of window: expected Deliver, got %v", v)
	}
}

// TestWindowUnsequencedBypass: seq zero means the server does not number
// its frames, so there is nothing to deduplicate.
func TestWindowUnsequencedBypass(t *testing.T) {
	w := NewWindow()

	for i := 0; i < 3; i++ {
		if v := w.Validate(0); v != Deliver {
			t.Errorf("unsequenced frame: expected Deliver, got %v", v)
		}
	}
	if w.LastDelivered() != 0 {
		t.Errorf("unsequenced frames must not move the window, got %d", w.LastDelivered())
	}
}

// TestWindowReset: a fresh connection numbers frames from scratch.
func TestWindowReset(t *testing.T) {
	w := NewWindow()
	w.Validate(1)
	w.Validate(2)

	w.Reset()

	if v := w.Validate(1); v != Deliver {
		t.Errorf("after reset seq 1 should deliver, got %v", v)
	}
}
