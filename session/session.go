// Package session owns the connection to the match server and tracks its
// lifecycle. The Coordinator is the only component that touches the
// transport; screens observe its state, subscribe to inbound events, and
// send commands through it. Nothing else on the client may talk to the
// server directly.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/risa-org/msc/handshake"
	"github.com/risa-org/msc/protocol"
	"github.com/risa-org/msc/transport"
	wstransport "github.com/risa-org/msc/transport/websocket"
)

var (
	// ErrNotAuthenticated is returned by Send when a trust-requiring event
	// is attempted before the handshake has completed. This is a caller
	// error, not a network error: the command never reaches the transport.
	ErrNotAuthenticated = errors.New("session not authenticated")

	// ErrAlreadyConnected is returned by Connect when a connection attempt
	// is already in flight or established.
	ErrAlreadyConnected = errors.New("session already connected")

	// ErrHandshakeFailed wraps an authentication rejection.
	ErrHandshakeFailed = errors.New("handshake failed")

	// ErrConnectAborted is returned when Close raced a Connect and won.
	ErrConnectAborted = errors.New("connect aborted")
)

// Handler receives one inbound event. Handlers run on the receive loop
// goroutine, one at a time, in registration order.
type Handler func(ev transport.Event)

// Subscription identifies one registered handler so it can be removed.
// Every screen must remove its own subscriptions on teardown; the
// coordinator never unregisters handlers on its own, and a stale closure
// from a destroyed screen will otherwise keep firing.
type Subscription struct {
	name string
	id   uint64
}

// Dialer produces a connected transport for an endpoint. Swapped out in
// tests for a net.Pipe-backed transport.
type Dialer interface {
	Dial(ctx context.Context, endpoint, token string) (transport.Adapter, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, endpoint, token string) (transport.Adapter, error)

func (f DialerFunc) Dial(ctx context.Context, endpoint, token string) (transport.Adapter, error) {
	return f(ctx, endpoint, token)
}

// Config carries everything the coordinator needs to reach the server.
// Zero values get sensible defaults in NewCoordinator.
type Config struct {
	Endpoint         string
	Token            string
	ClientID         string        // defaults to a fresh UUID
	DialTimeout      time.Duration // defaults to 5s
	HandshakeTimeout time.Duration // defaults to 10s
	Dialer           Dialer        // defaults to the websocket transport
	Logger           *zap.Logger   // defaults to zap.NewNop()
}

type handlerEntry struct {
	id uint64
	fn Handler
}

// Coordinator is the session state machine. It owns the transport handle
// exclusively, exposes the current ConnState, gates outbound commands on
// authentication, and fans inbound events out to subscribers.
type Coordinator struct {
	mu      sync.Mutex
	cfg     Config
	log     *zap.Logger
	state   ConnState
	lastErr string

	adapter   transport.Adapter
	window    *Window
	outSeq    uint64
	sessionID string

	// gen invalidates receive loops and in-flight connects: any goroutine
	// holding an older generation must treat its results as stale
	gen uint64

	handlers map[string][]handlerEntry
	nextSub  uint64

	everConnected bool
	reconnects    int
}

// NewCoordinator builds an unconnected coordinator. Call Connect to bring
// the session up.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.Dialer == nil {
		cfg.Dialer = DialerFunc(func(ctx context.Context, endpoint, token string) (transport.Adapter, error) {
			return wstransport.Dial(ctx, endpoint, token)
		})
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Coordinator{
		cfg:      cfg,
		log:      cfg.Logger,
		state:    StateDisconnected,
		window:   NewWindow(),
		handlers: make(map[string][]handlerEntry),
	}
}

// Connect dials the configured endpoint and runs the authentication
// handshake. On success the session is StateAuthenticated and the receive
// loop is running. On any failure the session is StateFailed with a recorded
// reason and the caller decides whether to retry; the coordinator never
// retries on its own, so there is no hidden reconnection racing the caller.
//
// Only legal from StateDisconnected or StateFailed.
func (c *Coordinator) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateDisconnected, StateFailed:
	default:
		c.mu.Unlock()
		return fmt.Errorf("connect in state %s: %w", c.state, ErrAlreadyConnected)
	}
	c.setStateLocked(StateConnecting)
	c.lastErr = ""
	if c.everConnected {
		c.reconnects++
	}
	c.everConnected = true
	c.gen++
	gen := c.gen
	cfg := c.cfg
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	adapter, err := cfg.Dialer.Dial(dialCtx, cfg.Endpoint, cfg.Token)
	cancel()
	if err != nil {
		c.fail(gen, "dial: "+err.Error())
		return fmt.Errorf("dial %s: %w", cfg.Endpoint, err)
	}

	if !c.advance(gen, StateConnected) {
		_ = adapter.Close()
		return ErrConnectAborted
	}
	if !c.advance(gen, StateAuthenticating) {
		_ = adapter.Close()
		return ErrConnectAborted
	}

	hsCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	result := handshake.Run(hsCtx, adapter, handshake.Hello{ClientID: cfg.ClientID, Token: cfg.Token})
	cancel()
	if !result.Accepted {
		_ = adapter.Close()
		c.fail(gen, result.Reason)
		return fmt.Errorf("%w: %s", ErrHandshakeFailed, result.Reason)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		_ = adapter.Close()
		return ErrConnectAborted
	}
	c.adapter = adapter
	c.sessionID = result.SessionID
	c.window.Reset()
	c.outSeq = 0
	c.setStateLocked(StateAuthenticated)
	c.mu.Unlock()

	c.log.Info("session authenticated",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("session_id", result.SessionID))

	go c.receiveLoop(adapter, gen)
	return nil
}

// State is a pure read of the latest resolved state.
func (c *Coordinator) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the reason recorded for the most recent failure or
// drop, empty if the last transition was clean.
func (c *Coordinator) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// SessionID returns the id the server assigned during the handshake,
// empty before the first successful Connect.
func (c *Coordinator) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Reconnects returns how many times Connect has been called after the first
// attempt, successful or not. Observability only; retry policy stays with
// the caller.
func (c *Coordinator) Reconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnects
}

// ClientID returns the identity presented in the handshake.
func (c *Coordinator) ClientID() string {
	return c.cfg.ClientID
}

// Send encodes payload and forwards one event to the transport.
// Trust-requiring events are rejected with ErrNotAuthenticated in every
// state except StateAuthenticated; the rejection is synchronous and nothing
// reaches the wire.
func (c *Coordinator) Send(name string, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		raw = b
	}

	c.mu.Lock()
	if protocol.RequiresTrust(name) && c.state != StateAuthenticated {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("send %s in state %s: %w", name, st, ErrNotAuthenticated)
	}
	adapter := c.adapter
	if adapter == nil {
		c.mu.Unlock()
		return transport.ErrTransportClosed
	}
	c.outSeq++
	seq := c.outSeq
	c.mu.Unlock()

	return adapter.Send(transport.Event{Seq: seq, Name: name, Payload: raw})
}

// On registers a handler for one inbound event name and returns the
// subscription the caller must pass to Off at teardown. Handlers for the
// same name run in registration order.
func (c *Coordinator) On(name string, fn Handler) Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	c.handlers[name] = append(c.handlers[name], handlerEntry{id: c.nextSub, fn: fn})
	return Subscription{name: name, id: c.nextSub}
}

// Off removes one subscription. Removing an already-removed subscription is
// a no-op.
func (c *Coordinator) Off(sub Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.handlers[sub.name]
	for i, e := range entries {
		if e.id == sub.id {
			c.handlers[sub.name] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Close tears the session down deliberately. No disconnect event is raised:
// the drop notification exists for unexpected drops, and whoever calls Close
// already knows.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	c.gen++ // invalidate the receive loop and any in-flight connect
	adapter := c.adapter
	c.adapter = nil
	if c.state != StateDisconnected && c.state != StateFailed {
		c.setStateLocked(StateDisconnected)
	}
	c.mu.Unlock()

	if adapter != nil {
		return adapter.Close()
	}
	return nil
}

// receiveLoop drains the transport until it closes, applying duplicate
// detection and fanning events out to subscribers. Exactly one loop is live
// per generation; a stale loop's drop report is ignored.
func (c *Coordinator) receiveLoop(adapter transport.Adapter, gen uint64) {
	for ev := range adapter.Receive() {
		c.mu.Lock()
		stale := c.gen != gen
		verdict := Deliver
		if !stale {
			verdict = c.window.Validate(ev.Seq)
		}
		c.mu.Unlock()

		if stale {
			return
		}
		switch verdict {
		case DropDuplicate:
			c.log.Debug("dropping duplicate frame",
				zap.Uint64("seq", ev.Seq), zap.String("event", ev.Name))
			continue
		case DropViolation:
			c.log.Warn("dropping frame outside sequence window",
				zap.Uint64("seq", ev.Seq), zap.String("event", ev.Name))
			continue
		}
		c.dispatch(ev)
	}

	var drop transport.DisconnectEvent
	select {
	case drop = <-adapter.Disconnected():
	default:
	}
	c.handleDrop(gen, drop)
}

// handleDrop reacts to an unexpected transport drop: straight to
// StateDisconnected, record the reason, raise the disconnect event.
// Reconnection is the caller's decision.
func (c *Coordinator) handleDrop(gen uint64, drop transport.DisconnectEvent) {
	c.mu.Lock()
	if c.gen != gen {
		// Close or a newer Connect already superseded this connection
		c.mu.Unlock()
		return
	}
	c.adapter = nil
	reason := drop.Reason.String()
	if drop.Err != nil {
		reason = fmt.Sprintf("%s: %v", reason, drop.Err)
	}
	c.lastErr = reason
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	c.log.Warn("transport dropped", zap.String("reason", reason))

	payload, _ := json.Marshal(struct {
		Reason string `json:"reason"`
	}{Reason: reason})
	c.dispatch(transport.Event{Name: protocol.EventDisconnect, Payload: payload})
}

// dispatch runs all handlers registered for the event, in registration
// order, outside the lock. The snapshot means a handler may safely call On
// or Off while running.
func (c *Coordinator) dispatch(ev transport.Event) {
	c.mu.Lock()
	entries := make([]handlerEntry, len(c.handlers[ev.Name]))
	copy(entries, c.handlers[ev.Name])
	c.mu.Unlock()

	for _, e := range entries {
		e.fn(ev)
	}
}

// fail records a failure reason for the given generation.
func (c *Coordinator) fail(gen uint64, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.lastErr = reason
	c.setStateLocked(StateFailed)
}

// advance performs one forward transition for the given generation,
// reporting whether it took effect.
func (c *Coordinator) advance(gen uint64, to ConnState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	return c.setStateLocked(to)
}

// setStateLocked applies a transition if the table allows it. An invalid
// transition is a bug in this package, so it is logged loudly and ignored
// rather than corrupting the machine.
func (c *Coordinator) setStateLocked(to ConnState) bool {
	if !validTransition(c.state, to) {
		c.log.Error("invalid state transition",
			zap.String("from", c.state.String()), zap.String("to", to.String()))
		return false
	}
	c.log.Debug("session state",
		zap.String("from", c.state.String()), zap.String("to", to.String()))
	c.state = to
	return true
}
