package server

import (
	"fmt"
	"strings"
	"testing"

	"nhooyr.io/websocket"

	"gridfall/internal/piece"
	"gridfall/internal/session"
)

func TestWSPieceRequest(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	conn := wsConnect(t, env.ts)
	defer conn.Close(websocket.StatusNormalClosure, "")

	want := fmt.Sprintf("PIECE %d", testShape)
	for range 3 {
		wsSend(ctx, t, conn, "PIECE")
		expectFrame(ctx, t, conn, want)
	}
}

func TestPieceShapesInRange(t *testing.T) {
	srv := New(nil, nil, nil)
	for range 200 {
		if n := srv.nextShape(); n < 0 || n >= piece.Shapes() {
			t.Fatalf("shape %d out of range", n)
		}
	}
}

func TestWSCreateListJoin(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	alice := wsConnectAs(t, env.ts, "alice")
	defer alice.Close(websocket.StatusNormalClosure, "")
	createChannel(ctx, t, alice, "tetris", "alice")

	bob := wsConnectAs(t, env.ts, "bob")
	defer bob.Close(websocket.StatusNormalClosure, "")
	wsSend(ctx, t, bob, "LIST")
	expectFrame(ctx, t, bob, "CHANNELS tetris")

	wsSend(ctx, t, bob, "JOIN tetris")
	expectFrame(ctx, t, bob, "JOIN tetris")
	expectFrame(ctx, t, bob, "USERS alice\nbob")
	expectFrame(ctx, t, alice, "USERS alice\nbob")

	// bob is not the host, so the next frame answers his request
	wsSend(ctx, t, bob, "USERS")
	expectFrame(ctx, t, bob, "USERS alice\nbob")

	wsSend(ctx, t, bob, "JOIN tetris")
	if text := expectError(ctx, t, bob); !strings.Contains(text, "already in") {
		t.Fatalf("unexpected error: %q", text)
	}
	wsSend(ctx, t, bob, "CREATE tetris")
	expectError(ctx, t, bob)
}

func TestWSChatRelay(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()
	alice, bob := twoInChannel(t, env)

	wsSend(ctx, t, bob, "MSG hello there")
	expectFrame(ctx, t, bob, "MSG bob:hello there")
	expectFrame(ctx, t, alice, "MSG bob:hello there")
}

func TestWSRename(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()
	alice, bob := twoInChannel(t, env)

	wsSend(ctx, t, bob, "NICK bobby")
	expectFrame(ctx, t, bob, "NICK bobby")
	expectFrame(ctx, t, alice, "NICK bob:bobby")

	wsSend(ctx, t, bob, "NICK alice")
	if text := expectError(ctx, t, bob); !strings.Contains(text, "taken") {
		t.Fatalf("unexpected error: %q", text)
	}

	// the old nick is free again
	carol := wsConnectAs(t, env.ts, "bob")
	carol.Close(websocket.StatusNormalClosure, "")
}

func TestWSStartHostOnly(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()
	alice, bob := twoInChannel(t, env)

	wsSend(ctx, t, bob, "START")
	expectError(ctx, t, bob)

	wsSend(ctx, t, alice, "START")
	for _, conn := range []*websocket.Conn{alice, bob} {
		expectFrame(ctx, t, conn, "START")
		expectFrame(ctx, t, conn, "SCORES alice:0:3\nbob:0:3")
	}

	row, err := env.store.GetChannel("tetris")
	if err != nil {
		t.Fatalf("get channel: %v", err)
	}
	if row.Status != string(session.StatusPlaying) {
		t.Fatalf("expected playing persisted, got %s", row.Status)
	}
}

func TestWSScoresLivesAndDeath(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()
	alice, bob := twoInChannel(t, env)

	wsSend(ctx, t, alice, "START")
	for _, conn := range []*websocket.Conn{alice, bob} {
		expectFrame(ctx, t, conn, "START")
		expectFrame(ctx, t, conn, "SCORES alice:0:3\nbob:0:3")
	}

	steps := []struct {
		conn  *websocket.Conn
		frame string
		want  string
	}{
		{alice, "SCORE 120", "SCORES alice:120:3\nbob:0:3"},
		{bob, "LIVES 2", "SCORES alice:120:3\nbob:0:2"},
		{bob, "DIE", "SCORES alice:120:3\nbob:0:DEAD"},
		{alice, "DIE", "SCORES alice:120:DEAD\nbob:0:DEAD"},
	}
	for _, step := range steps {
		wsSend(ctx, t, step.conn, step.frame)
		expectFrame(ctx, t, alice, step.want)
		expectFrame(ctx, t, bob, step.want)
	}

	sess, _ := env.mgr.Get("tetris")
	if sess.State() != session.StatusWaiting {
		t.Fatalf("expected waiting after everyone died, got %s", sess.State())
	}
}

func TestWSBoardRelay(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()
	alice, bob := twoInChannel(t, env)

	wsSend(ctx, t, alice, "BOARD abc123")
	expectFrame(ctx, t, bob, "BOARD alice:abc123")

	// the sender does not get its own board back
	wsSend(ctx, t, alice, "PIECE")
	expectFrame(ctx, t, alice, fmt.Sprintf("PIECE %d", testShape))
}

func TestWSPartPassesHost(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()
	alice, bob := twoInChannel(t, env)

	wsSend(ctx, t, alice, "PART")
	expectFrame(ctx, t, alice, "PARTED")
	expectFrame(ctx, t, bob, "USERS bob")
	expectFrame(ctx, t, bob, "HOST")

	wsSend(ctx, t, alice, "MSG anyone?")
	if text := expectError(ctx, t, alice); text != "not in a channel" {
		t.Fatalf("unexpected error: %q", text)
	}
}

func TestWSDisconnectLeavesChannel(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()
	alice, bob := twoInChannel(t, env)

	bob.Close(websocket.StatusNormalClosure, "")
	expectFrame(ctx, t, alice, "USERS alice")
}

func TestWSHighScores(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	conn := wsConnect(t, env.ts)
	defer conn.Close(websocket.StatusNormalClosure, "")

	wsSend(ctx, t, conn, "HISCORE ann:300")
	expectFrame(ctx, t, conn, "NEWSCORE ann:300")
	wsSend(ctx, t, conn, "HISCORE bob:900")
	expectFrame(ctx, t, conn, "NEWSCORE bob:900")

	wsSend(ctx, t, conn, "HISCORES")
	expectFrame(ctx, t, conn, "HISCORES bob:900\nann:300")
}

func TestWSBadFrames(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	conn := wsConnect(t, env.ts)
	defer conn.Close(websocket.StatusNormalClosure, "")

	for _, frame := range []string{"BOGUS", "SCORE -4", "JOIN nope", "MSG hi", "DIE", "START"} {
		wsSend(ctx, t, conn, frame)
		expectError(ctx, t, conn)
	}

	wsSend(ctx, t, conn, "CHANNELS x")
	if text := expectError(ctx, t, conn); text != "unexpected CHANNELS" {
		t.Fatalf("unexpected error: %q", text)
	}
}
