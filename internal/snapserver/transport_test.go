package snapserver

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/snapdog/snapdog/internal/apperr"
)

// fakeServer is a minimal one-connection-at-a-time JSON-RPC peer for tests.
type fakeServer struct {
	ln net.Listener
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return &fakeServer{ln: ln}
}

func (f *fakeServer) addr() string { return f.ln.Addr().String() }
func (f *fakeServer) close()       { f.ln.Close() }

// acceptAndHandle accepts one connection and calls handle with it.
func (f *fakeServer) acceptAndHandle(t *testing.T, handle func(net.Conn)) {
	t.Helper()
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	handle(conn)
}

func TestTransport_RequestResponse(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()

	go fs.acceptAndHandle(t, func(conn net.Conn) {
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var req rpcRequest
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				return
			}
			resp := rpcMessage{JSONRPC: "2.0", ID: &req.ID, Result: json.RawMessage(`{"server":{"host":{"name":"snapserver"}}}`)}
			data, _ := json.Marshal(resp)
			conn.Write(append(data, '\n'))
		}
	})

	tr := NewTransport(fs.addr(), time.Second)
	ctx := context.Background()
	if err := tr.connectOnce(ctx); err != nil {
		t.Fatalf("connectOnce: %v", err)
	}

	var result struct {
		Server struct {
			Host struct {
				Name string `json:"name"`
			} `json:"host"`
		} `json:"server"`
	}
	if err := tr.Request(ctx, MethodServerGetStatus, nil, &result); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if result.Server.Host.Name != "snapserver" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestTransport_Notification(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()

	ready := make(chan net.Conn, 1)
	go fs.acceptAndHandle(t, func(conn net.Conn) {
		ready <- conn
	})

	tr := NewTransport(fs.addr(), time.Second)
	ctx := context.Background()
	if err := tr.connectOnce(ctx); err != nil {
		t.Fatalf("connectOnce: %v", err)
	}

	received := make(chan Notification, 1)
	tr.Subscribe(func(n Notification) { received <- n })

	conn := <-ready
	defer conn.Close()
	notif := `{"jsonrpc":"2.0","method":"Client.OnVolumeChanged","params":{"id":"abc"}}` + "\n"
	if _, err := conn.Write([]byte(notif)); err != nil {
		t.Fatalf("write notification: %v", err)
	}

	select {
	case n := <-received:
		if n.Method != MethodClientOnVolumeChanged {
			t.Fatalf("unexpected method: %s", n.Method)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestTransport_RequestTimeout(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()

	go fs.acceptAndHandle(t, func(conn net.Conn) {
		defer conn.Close()
		time.Sleep(time.Second)
	})

	tr := NewTransport(fs.addr(), 50*time.Millisecond)
	ctx := context.Background()
	if err := tr.connectOnce(ctx); err != nil {
		t.Fatalf("connectOnce: %v", err)
	}

	err := tr.Request(ctx, MethodServerGetStatus, nil, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if apperr.KindOf(err) != apperr.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", apperr.KindOf(err))
	}
}

func TestTransport_DisconnectFailsPending(t *testing.T) {
	fs := newFakeServer(t)
	defer fs.close()

	go fs.acceptAndHandle(t, func(conn net.Conn) {
		buf := make([]byte, 1024)
		conn.Read(buf)
		conn.Close()
	})

	tr := NewTransport(fs.addr(), 5*time.Second)
	ctx := context.Background()
	if err := tr.connectOnce(ctx); err != nil {
		t.Fatalf("connectOnce: %v", err)
	}

	err := tr.Request(ctx, MethodServerGetStatus, nil, nil)
	if err == nil {
		t.Fatal("expected error after disconnect")
	}
}

func TestTransport_RequestWhileDisconnected(t *testing.T) {
	tr := NewTransport("127.0.0.1:1", time.Second)
	err := tr.Request(context.Background(), MethodServerGetStatus, nil, nil)
	if apperr.KindOf(err) != apperr.Unavailable {
		t.Fatalf("expected Unavailable, got %v", apperr.KindOf(err))
	}
}
