// Package websocket implements transport.Adapter over a WebSocket
// connection. Each frame is the JSON envelope {seq, event, payload};
// WebSocket already has message boundaries built in, so no extra framing is
// needed on top.
package websocket

import (
	"context"
	"net/http"
	"sync"

	"github.com/risa-org/msc/transport"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Adapter implements transport.Adapter over a *websocket.Conn.
type Adapter struct {
	conn       *websocket.Conn
	incoming   chan transport.Event
	disconnect chan transport.DisconnectEvent
	closeOnce  sync.Once
	ctx        context.Context
	cancel     context.CancelFunc
}

// Dial connects to a match server endpoint and returns a ready Adapter.
// A non-empty token is presented as a bearer credential in the HTTP upgrade
// request; the actual authentication exchange still happens in-band
// afterwards. The context bounds only the dial, not the connection lifetime.
func Dial(ctx context.Context, endpoint, token string) (*Adapter, error) {
	var opts *websocket.DialOptions
	if token != "" {
		hdr := http.Header{}
		hdr.Set("Authorization", "Bearer "+token)
		opts = &websocket.DialOptions{HTTPHeader: hdr}
	}
	conn, _, err := websocket.Dial(ctx, endpoint, opts)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// New wraps an existing *websocket.Conn in a transport Adapter.
// Used directly by test servers that accept the connection themselves.
func New(conn *websocket.Conn) *Adapter {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		conn:       conn,
		incoming:   make(chan transport.Event, 64),
		disconnect: make(chan transport.DisconnectEvent, 1),
		ctx:        ctx,
		cancel:     cancel,
	}
	go a.readLoop()
	return a
}

func (a *Adapter) Send(ev transport.Event) error {
	if err := wsjson.Write(a.ctx, a.conn, ev); err != nil {
		return transport.ErrTransportClosed
	}
	return nil
}

func (a *Adapter) Receive() <-chan transport.Event {
	return a.incoming
}

func (a *Adapter) Disconnected() <-chan transport.DisconnectEvent {
	return a.disconnect
}

func (a *Adapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.cancel()
		err = a.conn.Close(websocket.StatusNormalClosure, "closed")
	})
	return err
}

func (a *Adapter) readLoop() {
	defer func() {
		close(a.incoming)
		a.Close()
	}()

	for {
		var ev transport.Event
		err := wsjson.Read(a.ctx, a.conn, &ev)
		if err != nil {
			a.signalDisconnect(err)
			return
		}
		a.incoming <- ev
	}
}

// signalDisconnect sends exactly one disconnect event.
// StatusNormalClosure (1000) and StatusGoingAway (1001) are both clean
// closes; different WebSocket implementations and shutdown timing produce
// either code. Context cancellation means we closed it ourselves, also
// clean.
func (a *Adapter) signalDisconnect(err error) {
	event := transport.DisconnectEvent{}

	status := websocket.CloseStatus(err)
	switch {
	case status == websocket.StatusNormalClosure,
		status == websocket.StatusGoingAway,
		a.ctx.Err() != nil:
		event.Reason = transport.ReasonClosedClean
	default:
		event.Reason = transport.ReasonNetworkError
		event.Err = err
	}

	select {
	case a.disconnect <- event:
	default:
	}
}
