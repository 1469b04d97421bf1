// Package dispatch turns server pushes and local user actions into screen
// transitions, and guarantees that each logical event produces at most one.
// Both sources funnel through a single Dispatcher: pushes arrive via session
// subscriptions, user actions via the action methods, and the presentation
// layer consumes the resulting Transition values from one sink.
package dispatch

import (
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/risa-org/msc/lobby"
	"github.com/risa-org/msc/protocol"
	"github.com/risa-org/msc/session"
	"github.com/risa-org/msc/transport"
	"sync"
)

// Screen targets consumed by the presentation layer.
const (
	TargetLobbyWaiting = "LobbyWaiting"
	TargetLobbyMenu    = "LobbyMenu"
	TargetGame         = "Game"
	TargetResults      = "Results"
)

// ErrNoLobby is returned by Rematch when the cache holds no record, which
// happens after an explicit leave or before the first lobby_joined.
var ErrNoLobby = errors.New("no lobby record cached")

// Transition tells the presentation layer which screen to show next and
// with what payload.
type Transition struct {
	Target  string
	Payload any
}

// MenuNotice is the payload of fall-back transitions to the lobby menu.
// Reason is empty on plain cancels.
type MenuNotice struct {
	Reason string
}

// Sink receives every dispatched transition. The presentation layer
// installs exactly one.
type Sink func(t Transition)

// Dispatcher reconciles the two sources of transitions. Policy: a server
// push always wins; dispatching a push pre-empts the active scope so that a
// pending local timer or a late user action cannot fire a second transition
// for the same screen. Consecutive identical pushes (same event, same
// logical key) dispatch once.
type Dispatcher struct {
	mu     sync.Mutex
	sess   *session.Coordinator
	cache  *lobby.Cache
	sink   Sink
	log    *zap.Logger
	last   string // de-dup key of the most recent dispatch
	active *Scope
	subs   []session.Subscription
}

// New wires a dispatcher to a session and a lobby cache. Transitions flow
// to sink. A nil logger means no logging.
func New(sess *session.Coordinator, cache *lobby.Cache, sink Sink, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sess:  sess,
		cache: cache,
		sink:  sink,
		log:   logger,
	}
}

// Bind subscribes the standard server pushes. Call once after the
// coordinator exists; Unbind releases the subscriptions.
func (d *Dispatcher) Bind() {
	d.subs = append(d.subs,
		d.sess.On(protocol.EventLobbyJoined, d.onLobbyJoined),
		d.sess.On(protocol.EventMatchmakingFailed, d.onMatchmakingFailed),
		d.sess.On(protocol.EventDisconnect, d.onDisconnect),
		d.sess.On(protocol.EventMatchEnded, d.onMatchEnded),
	)
}

// Unbind removes the subscriptions registered by Bind.
func (d *Dispatcher) Unbind() {
	for _, sub := range d.subs {
		d.sess.Off(sub)
	}
	d.subs = nil
}

func (d *Dispatcher) onLobbyJoined(ev transport.Event) {
	var body protocol.LobbyJoined
	if err := json.Unmarshal(ev.Payload, &body); err != nil || body.LobbyID == "" {
		d.log.Warn("lobby_joined with no usable lobby id, ignoring")
		return
	}

	// the cache write happens before the transition so the new screen can
	// read it immediately
	_ = d.cache.Set(lobby.Record{
		LobbyID: body.LobbyID,
		Roster:  body.Roster,
		Status:  body.Status,
	})

	d.push(protocol.EventLobbyJoined+"/"+body.LobbyID,
		Transition{Target: TargetLobbyWaiting, Payload: body})
}

func (d *Dispatcher) onMatchmakingFailed(ev transport.Event) {
	var body protocol.MatchmakingFailed
	_ = json.Unmarshal(ev.Payload, &body)
	if body.Reason == "" {
		body.Reason = "unknown"
	}
	d.push(protocol.EventMatchmakingFailed+"/"+body.Reason,
		Transition{Target: TargetLobbyMenu, Payload: MenuNotice{Reason: body.Reason}})
}

func (d *Dispatcher) onDisconnect(ev transport.Event) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.Unmarshal(ev.Payload, &body)
	d.push(protocol.EventDisconnect,
		Transition{Target: TargetLobbyMenu, Payload: MenuNotice{Reason: body.Reason}})
}

func (d *Dispatcher) onMatchEnded(ev transport.Event) {
	results, anomalies := protocol.DecodeMatchResults(ev.Payload)
	for _, a := range anomalies {
		d.log.Warn("malformed match results", zap.String("anomaly", a))
	}
	d.push(protocol.EventMatchEnded,
		Transition{Target: TargetResults, Payload: results})
}

// Cancel is the user backing out of the current screen. It goes through the
// scope, so a cancel pressed after a push already moved the screen away is
// a no-op.
func (d *Dispatcher) Cancel(sc *Scope) bool {
	return sc.Transition(Transition{Target: TargetLobbyMenu, Payload: MenuNotice{}})
}

// Leave is an intentional exit from the current lobby. The cache is cleared
// synchronously before anything else: a stale record here would make a
// later rematch target a lobby the player already left. The leave command
// is then sent on a best-effort basis and the scope falls back to the menu
// either way; a send error is returned for the presentation layer to
// surface.
func (d *Dispatcher) Leave(sc *Scope) error {
	rec, ok := d.cache.Get()
	d.cache.Clear()

	var err error
	if ok {
		err = d.sess.Send(protocol.EventLeaveLobby, protocol.LeaveLobby{LobbyID: rec.LobbyID})
	}
	sc.Transition(Transition{Target: TargetLobbyMenu, Payload: MenuNotice{}})
	return err
}

// Rematch asks the server for another round in the most recent lobby. The
// lobby id comes from the cache, because the screen that learned it has
// long been destroyed. No transition happens here; the server answers with
// a lobby_joined push and that push drives the screen.
func (d *Dispatcher) Rematch() error {
	rec, ok := d.cache.Get()
	if !ok {
		return ErrNoLobby
	}
	return d.sess.Send(protocol.EventRequestRematch, protocol.RequestRematch{
		LobbyID:   rec.LobbyID,
		Timestamp: time.Now().UnixMilli(),
	})
}

// FastPath transitions straight to the game screen when the session is
// already authenticated, the boot screen's shortcut on warm starts.
func (d *Dispatcher) FastPath(sc *Scope) bool {
	if d.sess.State() != session.StateAuthenticated {
		return false
	}
	return sc.Transition(Transition{Target: TargetGame})
}

// ForceStart is the administrative test action to start a match. It is an
// ordinary command: the session's trust gate applies unchanged.
func (d *Dispatcher) ForceStart() error {
	rec, _ := d.cache.Get()
	return d.sess.Send(protocol.EventForceStart, protocol.StartMatch{LobbyID: rec.LobbyID})
}

// ForceEnd is the administrative test action to end the running match.
func (d *Dispatcher) ForceEnd() error {
	return d.sess.Send(protocol.EventForceEnd, nil)
}

// push dispatches a server-driven transition. Duplicate suppression
// compares against the most recent dispatch only: a replayed push arriving
// right behind the original is swallowed, while the same event recurring
// later in a fresh context (a new queue attempt joining the same lobby id)
// passes.
func (d *Dispatcher) push(key string, t Transition) {
	d.mu.Lock()
	if key == d.last {
		d.mu.Unlock()
		d.log.Debug("suppressing duplicate push", zap.String("key", key))
		return
	}
	d.last = key
	active := d.active
	sink := d.sink
	d.mu.Unlock()

	// the push wins: whatever the current screen had pending must not fire
	// a second transition after this one
	if active != nil {
		active.preempt()
	}
	if sink != nil {
		sink(t)
	}
}

// dispatchLocal delivers a user-driven transition. Local actions are
// already de-duplicated by their scope, so they only reset the push
// de-dup key.
func (d *Dispatcher) dispatchLocal(t Transition) {
	d.mu.Lock()
	d.last = "local/" + t.Target
	sink := d.sink
	d.mu.Unlock()

	if sink != nil {
		sink(t)
	}
}

func (d *Dispatcher) setActive(sc *Scope) {
	d.mu.Lock()
	d.active = sc
	d.mu.Unlock()
}

func (d *Dispatcher) clearActive(sc *Scope) {
	d.mu.Lock()
	if d.active == sc {
		d.active = nil
	}
	d.mu.Unlock()
}
