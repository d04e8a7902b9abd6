package snapserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/snapdog/snapdog/internal/apperr"
)

const defaultRequestTimeout = 5 * time.Second

// DialFunc opens the underlying connection; overridden in tests.
type DialFunc func(ctx context.Context, addr string) (net.Conn, error)

func defaultDial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// Transport owns the single TCP connection to a Snapcast server and
// correlates JSON-RPC requests with responses by id.
type Transport struct {
	addr           string
	requestTimeout time.Duration
	dial           DialFunc
	limiter        *rate.Limiter

	nextID atomic.Int64

	connMu    sync.RWMutex
	conn      net.Conn
	connected bool
	encodeMu  sync.Mutex

	pendingMu sync.Mutex
	pending   map[int64]chan rpcMessage

	subMu       sync.RWMutex
	subscribers []func(Notification)

	disconnectedCh chan struct{}
}

// NewTransport returns a Transport that has not yet connected; call Run to
// start the connect/reconnect loop.
func NewTransport(addr string, requestTimeout time.Duration) *Transport {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &Transport{
		addr:           addr,
		requestTimeout: requestTimeout,
		dial:           defaultDial,
		limiter:        rate.NewLimiter(rate.Limit(50), 10),
		pending:        make(map[int64]chan rpcMessage),
		disconnectedCh: make(chan struct{}),
	}
}

// SetDialFunc overrides how the transport opens its connection; for tests.
func (t *Transport) SetDialFunc(d DialFunc) { t.dial = d }

// Subscribe registers cb to receive every decoded notification. Order of
// delivery to a single subscriber matches arrival order on the connection.
func (t *Transport) Subscribe(cb func(Notification)) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	t.subscribers = append(t.subscribers, cb)
}

// Connected reports whether the transport currently has a live connection.
func (t *Transport) Connected() bool {
	t.connMu.RLock()
	defer t.connMu.RUnlock()
	return t.connected
}

// Connect dials once, without the Run loop's reconnect/backoff behavior.
// Most callers should use Run; Connect is for callers (and tests) that want
// a single connection attempt with their own lifecycle management.
func (t *Transport) Connect(ctx context.Context) error {
	return t.connectOnce(ctx)
}

// connectOnce dials, swaps in the new connection, and starts its reader.
func (t *Transport) connectOnce(ctx context.Context) error {
	conn, err := t.dial(ctx, t.addr)
	if err != nil {
		return err
	}

	t.connMu.Lock()
	t.conn = conn
	t.connected = true
	t.disconnectedCh = make(chan struct{})
	disconnectedCh := t.disconnectedCh
	t.connMu.Unlock()

	go t.readLoop(conn, disconnectedCh)
	return nil
}

// readLoop decodes newline-delimited frames until the connection fails,
// then fails all pending requests and signals disconnection.
func (t *Transport) readLoop(conn net.Conn, disconnectedCh chan struct{}) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg rpcMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			slog.Warn("snapserver: malformed frame, dropping", "err", err)
			continue
		}
		t.dispatch(msg)
	}

	t.handleDisconnect(conn, disconnectedCh)
}

func (t *Transport) dispatch(msg rpcMessage) {
	if msg.ID != nil {
		t.pendingMu.Lock()
		ch, ok := t.pending[*msg.ID]
		if ok {
			delete(t.pending, *msg.ID)
		}
		t.pendingMu.Unlock()
		if !ok {
			slog.Warn("snapserver: response for unknown request id, dropping", "id", *msg.ID)
			return
		}
		ch <- msg
		return
	}

	if msg.Method == "" {
		return
	}
	n := Notification{Method: msg.Method, Params: msg.Params}
	t.subMu.RLock()
	subs := make([]func(Notification), len(t.subscribers))
	copy(subs, t.subscribers)
	t.subMu.RUnlock()
	for _, cb := range subs {
		cb(n)
	}
}

func (t *Transport) handleDisconnect(conn net.Conn, disconnectedCh chan struct{}) {
	t.connMu.Lock()
	if t.conn == conn {
		t.connected = false
		t.conn = nil
	}
	t.connMu.Unlock()
	_ = conn.Close()

	t.pendingMu.Lock()
	for id, ch := range t.pending {
		delete(t.pending, id)
		ch <- rpcMessage{Error: &rpcError{Code: -1, Message: "transport disconnected"}}
	}
	t.pendingMu.Unlock()

	close(disconnectedCh)
}

// Request issues a JSON-RPC call and waits for its matched response, the
// context's deadline, or the transport's default per-call timeout,
// whichever comes first.
func (t *Transport) Request(ctx context.Context, method string, params interface{}, result interface{}) error {
	t.connMu.RLock()
	conn, connected := t.conn, t.connected
	t.connMu.RUnlock()
	if !connected || conn == nil {
		return apperr.Unavailablef("snapserver: not connected")
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return apperr.DeadlineExceededf("snapserver: rate limit wait: %v", err)
	}

	id := t.nextID.Add(1)
	respCh := make(chan rpcMessage, 1)
	t.pendingMu.Lock()
	t.pending[id] = respCh
	t.pendingMu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		t.pendingMu.Lock()
		delete(t.pending, id)
		t.pendingMu.Unlock()
		return apperr.InvalidArgumentf("snapserver: encode request: %v", err)
	}
	data = append(data, '\n')

	t.encodeMu.Lock()
	_, writeErr := conn.Write(data)
	t.encodeMu.Unlock()
	if writeErr != nil {
		t.pendingMu.Lock()
		delete(t.pending, id)
		t.pendingMu.Unlock()
		return apperr.Unavailablef("snapserver: write request: %v", writeErr)
	}

	timeout := t.requestTimeout
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-respCh:
		if msg.Error != nil {
			return apperr.Internalf("snapserver: %s: %s", method, msg.Error.Message)
		}
		if result != nil && len(msg.Result) > 0 {
			if err := json.Unmarshal(msg.Result, result); err != nil {
				return apperr.Internalf("snapserver: decode result for %s: %v", method, err)
			}
		}
		return nil
	case <-timer.C:
		t.pendingMu.Lock()
		delete(t.pending, id)
		t.pendingMu.Unlock()
		return apperr.DeadlineExceededf("snapserver: %s timed out after %s", method, timeout)
	case <-ctx.Done():
		t.pendingMu.Lock()
		delete(t.pending, id)
		t.pendingMu.Unlock()
		return apperr.Cancelledf("snapserver: %s cancelled: %v", method, ctx.Err())
	}
}

// Close tears down the current connection and fails pending requests.
func (t *Transport) Close() error {
	t.connMu.Lock()
	conn := t.conn
	t.conn = nil
	t.connected = false
	t.connMu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

var _ io.Closer = (*Transport)(nil)
