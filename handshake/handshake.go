// Package handshake implements the client side of the authentication
// exchange: send one authenticate event, then wait for the server's verdict.
// Trust-requiring commands are only valid after this exchange succeeds.
package handshake

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/risa-org/msc/protocol"
	"github.com/risa-org/msc/transport"
)

// Rejection reason constants. Clear, named reasons so the session's
// last-error field and the logs say exactly what went wrong.
const (
	ReasonTimeout   = "handshake_timeout"
	ReasonRejected  = "rejected"
	ReasonTransport = "transport_closed"
)

// Hello identifies the client to the server. A zero ClientID is filled with
// a fresh UUID; the token is whatever credential the caller holds, possibly
// empty for servers that accept anonymous sessions.
type Hello struct {
	ClientID string
	Token    string
}

// Result is the outcome of the exchange. Either the session is trusted and
// SessionID is set, or Accepted is false with a non-empty Reason.
type Result struct {
	Accepted  bool
	SessionID string
	Reason    string
}

// Run performs the exchange on an already-connected transport.
//
// The server may interleave unrelated frames before its verdict (a queued
// push can race the auth reply), so Run skips everything that is not
// auth_ok or auth_failed. The context deadline bounds the whole exchange;
// on expiry the result is a timeout rejection, never a hang.
func Run(ctx context.Context, adapter transport.Adapter, hello Hello) Result {
	if hello.ClientID == "" {
		hello.ClientID = uuid.NewString()
	}

	payload, err := json.Marshal(protocol.AuthHello{
		ClientID:  hello.ClientID,
		Token:     hello.Token,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return reject(ReasonTransport)
	}

	if err := adapter.Send(transport.Event{
		Name:    protocol.EventAuthenticate,
		Payload: payload,
	}); err != nil {
		return reject(ReasonTransport)
	}

	for {
		select {
		case <-ctx.Done():
			return reject(ReasonTimeout)

		case ev, ok := <-adapter.Receive():
			if !ok {
				return reject(ReasonTransport)
			}
			switch ev.Name {
			case protocol.EventAuthOK:
				var body protocol.AuthOK
				// a malformed auth_ok still means the server accepted us,
				// we just won't know the session id
				_ = json.Unmarshal(ev.Payload, &body)
				return Result{Accepted: true, SessionID: body.SessionID}

			case protocol.EventAuthFailed:
				var body protocol.AuthFailed
				_ = json.Unmarshal(ev.Payload, &body)
				if body.Reason == "" {
					body.Reason = ReasonRejected
				}
				return Result{Reason: body.Reason}
			}
			// anything else is an early push, not our verdict, keep waiting
		}
	}
}

func reject(reason string) Result {
	return Result{Reason: reason}
}
