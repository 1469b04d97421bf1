// Package tcp implements transport.Adapter over a raw net.Conn. It exists
// for LAN tooling and for tests, which run the whole protocol over
// net.Pipe() without a listening websocket server.
package tcp

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"sync"

	"github.com/risa-org/msc/transport"
)

// Adapter implements transport.Adapter over a stream connection.
//
// Wire format for each event:
//
//	[4 bytes: frame length uint32 big-endian][N bytes: JSON envelope]
//
// TCP is a stream protocol with no message boundaries, so a Read() might
// return half an envelope or two envelopes joined together. The length
// prefix lets the read loop always consume exactly one event at a time.
type Adapter struct {
	conn       net.Conn
	incoming   chan transport.Event
	disconnect chan transport.DisconnectEvent
	closeOnce  sync.Once
	writeMu    sync.Mutex // one writer at a time, conn writes are not concurrent-safe
}

// New wraps an existing net.Conn in a transport Adapter.
// The conn must already be established; dialing or accepting happens
// outside. A read loop goroutine starts immediately.
func New(conn net.Conn) *Adapter {
	a := &Adapter{
		conn:       conn,
		incoming:   make(chan transport.Event, 64),        // buffered so the reader doesn't block on slow consumers
		disconnect: make(chan transport.DisconnectEvent, 1), // buffered so the writer never blocks
	}
	go a.readLoop()
	return a
}

// Send encodes an event and writes one framed message to the connection.
func (a *Adapter) Send(ev transport.Event) error {
	frame, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(frame)))
	if _, err := a.conn.Write(lenBuf[:]); err != nil {
		return transport.ErrTransportClosed
	}
	if _, err := a.conn.Write(frame); err != nil {
		return transport.ErrTransportClosed
	}
	return nil
}

// Receive returns the channel of incoming events.
// The channel is closed when the connection closes.
func (a *Adapter) Receive() <-chan transport.Event {
	return a.incoming
}

// Disconnected returns a channel that emits exactly one event when the
// connection closes, for any reason.
func (a *Adapter) Disconnected() <-chan transport.DisconnectEvent {
	return a.disconnect
}

// Close shuts down the connection cleanly.
// Safe to call multiple times, cleanup runs exactly once.
func (a *Adapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		err = a.conn.Close()
	})
	return err
}

// readLoop runs in a goroutine and continuously reads framed events. When
// the connection closes it signals disconnect and exits.
func (a *Adapter) readLoop() {
	defer func() {
		close(a.incoming)
		a.Close()
	}()

	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(a.conn, lenBuf[:]); err != nil {
			a.signalDisconnect(err)
			return
		}
		frameLen := binary.BigEndian.Uint32(lenBuf[:])

		frame := make([]byte, frameLen)
		if _, err := io.ReadFull(a.conn, frame); err != nil {
			a.signalDisconnect(err)
			return
		}

		var ev transport.Event
		if err := json.Unmarshal(frame, &ev); err != nil {
			// a peer that frames correctly but sends garbage JSON is not
			// worth killing the connection over; skip the frame
			continue
		}
		a.incoming <- ev
	}
}

// signalDisconnect figures out why the connection dropped and sends exactly
// one event on the disconnect channel.
func (a *Adapter) signalDisconnect(err error) {
	event := transport.DisconnectEvent{}

	if err == nil || err == io.EOF || err == io.ErrClosedPipe {
		// EOF means the remote side closed cleanly
		event.Reason = transport.ReasonClosedClean
	} else {
		event.Reason = transport.ReasonNetworkError
		event.Err = err
	}

	select {
	case a.disconnect <- event:
	default:
	}
}
