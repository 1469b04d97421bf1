package tcp

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/risa-org/msc/transport"
)

// dialPair creates two connected adapters, client and server. net.Pipe()
// gives an in-memory stream connection, no network ports needed.
func dialPair(t *testing.T) (*Adapter, *Adapter) {
	t.Helper()
	server, client := net.Pipe()
	return New(server), New(client)
}

func TestSendAndReceive(t *testing.T) {
	server, client := dialPair(t)
	defer server.Close()
	defer client.Close()

	err := client.Send(transport.Event{
		Seq:     1,
		Name:    "join_lobby",
		Payload: []byte(`{"lobbyId":"L1"}`),
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case ev := <-server.Receive():
		if ev.Seq != 1 {
			t.Errorf("expected Seq 1, got %d", ev.Seq)
		}
		if ev.Name != "join_lobby" {
			t.Errorf("expected event 'join_lobby', got '%s'", ev.Name)
		}
		if string(ev.Payload) != `{"lobbyId":"L1"}` {
			t.Errorf("unexpected payload '%s'", ev.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMultipleEvents(t *testing.T) {
	server, client := dialPair(t)
	defer server.Close()
	defer client.Close()

	for i := uint64(1); i <= 5; i++ {
		if err := client.Send(transport.Event{Seq: i, Name: "ping"}); err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
	}

	for i := uint64(1); i <= 5; i++ {
		select {
		case ev := <-server.Receive():
			if ev.Seq != i {
				t.Errorf("expected Seq %d, got %d", i, ev.Seq)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestDisconnectSignalOnClose(t *testing.T) {
	server, client := dialPair(t)
	defer server.Close()

	client.Close()

	select {
	case event := <-server.Disconnected():
		if event.Reason != transport.ReasonClosedClean {
			t.Errorf("expected ReasonClosedClean, got %v", event.Reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for disconnect signal")
	}
}

func TestReceiveChannelClosesOnDisconnect(t *testing.T) {
	server, client := dialPair(t)
	defer server.Close()

	client.Close()

	select {
	case _, ok := <-server.Receive():
		if ok {
			t.Error("expected Receive channel to close, got an event")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Receive channel to close")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	server, client := dialPair(t)
	defer client.Close()

	server.Close()
	server.Close()
	server.Close()
}

func TestSendOnClosedReturnsError(t *testing.T) {
	server, client := dialPair(t)
	defer server.Close()

	client.Close()

	err := client.Send(transport.Event{Seq: 1, Name: "ping"})
	if err == nil {
		t.Error("expected error sending on closed connection, got nil")
	}
}

// TestGarbageFrameIsSkipped feeds a well-framed but non-JSON payload
// straight into the raw connection. The adapter must skip it and keep the
// connection alive for the next valid frame.
func TestGarbageFrameIsSkipped(t *testing.T) {
	rawServer, rawClient := net.Pipe()
	server := New(rawServer)
	defer server.Close()
	defer rawClient.Close()

	go func() {
		garbage := []byte("this is not json")
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(garbage)))
		rawClient.Write(lenBuf[:])
		rawClient.Write(garbage)

		valid := []byte(`{"seq":7,"event":"ping"}`)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(valid)))
		rawClient.Write(lenBuf[:])
		rawClient.Write(valid)
	}()

	select {
	case ev := <-server.Receive():
		if ev.Seq != 7 || ev.Name != "ping" {
			t.Errorf("expected the valid frame after the garbage one, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the valid frame")
	}
}
