package dispatch

import (
	"sync"
	"time"

	"github.com/risa-org/msc/session"
	"github.com/risa-org/msc/transport"
)

type scopeState int

const (
	scopeActive scopeState = iota
	scopeTornDown
)

// Scope models one screen instance's transition lifetime: ACTIVE, then torn
// down, entered exactly once. Everything a screen starts goes through its
// scope, so that when the screen is replaced, its timers are cancelled, its
// subscriptions removed, and any callback that still fires becomes a no-op
// instead of a duplicate transition or a crash.
type Scope struct {
	mu           sync.Mutex
	d            *Dispatcher
	state        scopeState
	transitioned bool
	timers       []*time.Timer
	subs         []session.Subscription
}

// NewScope creates the scope for a freshly constructed screen and makes it
// the dispatcher's active scope, the one a winning server push pre-empts.
func (d *Dispatcher) NewScope() *Scope {
	sc := &Scope{d: d}
	d.setActive(sc)
	return sc
}

// On subscribes a session event handler bound to this scope. After teardown
// the underlying subscription may briefly linger until Teardown removes it,
// but the wrapper already refuses to run, so a late push touches nothing.
func (sc *Scope) On(name string, fn session.Handler) {
	sc.mu.Lock()
	if sc.state != scopeActive {
		sc.mu.Unlock()
		return
	}
	sc.mu.Unlock()

	sub := sc.d.sess.On(name, func(ev transport.Event) {
		if !sc.alive() {
			return
		}
		fn(ev)
	})

	sc.mu.Lock()
	if sc.state != scopeActive {
		// torn down between registration and bookkeeping, undo
		sc.mu.Unlock()
		sc.d.sess.Off(sub)
		return
	}
	sc.subs = append(sc.subs, sub)
	sc.mu.Unlock()
}

// AfterFunc schedules fn after delay, bound to this scope. The timer is
// cancelled on teardown and on the first transition; if it fires anyway in
// that window, the wrapper re-checks and does nothing. fn runs on the
// timer goroutine.
func (sc *Scope) AfterFunc(delay time.Duration, fn func()) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.state != scopeActive || sc.transitioned {
		return
	}
	t := time.AfterFunc(delay, func() {
		sc.mu.Lock()
		ok := sc.state == scopeActive && !sc.transitioned
		sc.mu.Unlock()
		if ok {
			fn()
		}
	})
	sc.timers = append(sc.timers, t)
}

// Transition fires a local transition. At most one transition leaves a
// scope: the first call wins, every later call (a second button press, a
// late timer, a cancel after a push already moved the screen) returns false
// and does nothing.
func (sc *Scope) Transition(t Transition) bool {
	if !sc.claim() {
		return false
	}
	sc.d.dispatchLocal(t)
	return true
}

// Teardown retires the scope: timers stopped, subscriptions removed, every
// later callback a no-op. Screens call this exactly once when destroyed;
// extra calls are harmless.
func (sc *Scope) Teardown() {
	sc.mu.Lock()
	if sc.state == scopeTornDown {
		sc.mu.Unlock()
		return
	}
	sc.state = scopeTornDown
	timers := sc.timers
	sc.timers = nil
	subs := sc.subs
	sc.subs = nil
	sc.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	for _, sub := range subs {
		sc.d.sess.Off(sub)
	}
	sc.d.clearActive(sc)
}

// preempt marks the scope as transitioned without dispatching anything.
// Called by the dispatcher when a server push takes the transition for this
// screen: the push's transition is the one that counts, and the scope's own
// pending timers and actions must go quiet.
func (sc *Scope) preempt() {
	sc.claim()
}

// claim atomically takes the scope's single transition slot and stops the
// timers. Returns false if the slot is gone or the scope is torn down.
func (sc *Scope) claim() bool {
	sc.mu.Lock()
	if sc.state != scopeActive || sc.transitioned {
		sc.mu.Unlock()
		return false
	}
	sc.transitioned = true
	timers := sc.timers
	sc.timers = nil
	sc.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	return true
}

func (sc *Scope) alive() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.state == scopeActive
}
