package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"gridfall/internal/session"
	"gridfall/internal/storage"
)

// --- Test environment ---

type testEnv struct {
	ts    *httptest.Server
	mgr   *session.Manager
	store *storage.Store
}

// testShape is the shape id the test server hands out for every PIECE.
const testShape = 4

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mgr := session.NewManager(store, nil)
	srv := New(mgr, store, nil)
	srv.nextShape = func() int { return testShape }
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, mgr: mgr, store: store}
}

// --- Context helpers ---

func timeoutCtx(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// --- WebSocket helpers ---

func wsURL(ts *httptest.Server) string {
	return strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws"
}

// wsConnect dials the server and consumes the guest NICK greeting. The
// caller is responsible for closing the connection.
func wsConnect(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(ts), nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	if greeting := wsRead(ctx, t, conn); !strings.HasPrefix(greeting, "NICK guest-") {
		t.Fatalf("expected guest nick greeting, got %q", greeting)
	}
	return conn
}

// wsConnectAs connects and renames to nick.
func wsConnectAs(t *testing.T, ts *httptest.Server, nick string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := wsConnect(t, ts)
	wsSend(ctx, t, conn, "NICK "+nick)
	expectFrame(ctx, t, conn, "NICK "+nick)
	return conn
}

// wsSend writes one text frame, calling t.Fatal on error.
func wsSend(ctx context.Context, t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
		t.Fatalf("ws write: %v", err)
	}
}

// wsRead reads one text frame, calling t.Fatal on error.
func wsRead(ctx context.Context, t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("ws read: %v", err)
	}
	return string(data)
}

// expectFrame reads one frame and requires it to equal want.
func expectFrame(ctx context.Context, t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()
	if got := wsRead(ctx, t, conn); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

// expectError reads one frame and requires it to be an ERROR.
func expectError(ctx context.Context, t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	got := wsRead(ctx, t, conn)
	if !strings.HasPrefix(got, "ERROR ") {
		t.Fatalf("expected ERROR, got %q", got)
	}
	return strings.TrimPrefix(got, "ERROR ")
}

// createChannel has conn (already renamed to nick) create and join name.
func createChannel(ctx context.Context, t *testing.T, conn *websocket.Conn, name, nick string) {
	t.Helper()
	wsSend(ctx, t, conn, "CREATE "+name)
	expectFrame(ctx, t, conn, "JOIN "+name)
	expectFrame(ctx, t, conn, "USERS "+nick)
	expectFrame(ctx, t, conn, "HOST")
}

// twoInChannel returns alice (host) and bob, both in channel "tetris".
func twoInChannel(t *testing.T, env *testEnv) (alice, bob *websocket.Conn) {
	t.Helper()
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	alice = wsConnectAs(t, env.ts, "alice")
	t.Cleanup(func() { alice.Close(websocket.StatusNormalClosure, "") })
	createChannel(ctx, t, alice, "tetris", "alice")

	bob = wsConnectAs(t, env.ts, "bob")
	t.Cleanup(func() { bob.Close(websocket.StatusNormalClosure, "") })
	wsSend(ctx, t, bob, "JOIN tetris")
	expectFrame(ctx, t, bob, "JOIN tetris")
	expectFrame(ctx, t, bob, "USERS alice\nbob")
	expectFrame(ctx, t, alice, "USERS alice\nbob")
	return alice, bob
}
