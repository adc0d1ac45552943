package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"gridfall/internal/session"
)

func TestListChannelsEmpty(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Get(env.ts.URL + "/api/channels")
	if err != nil {
		t.Fatalf("GET /api/channels: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var infos []session.Info
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected no channels, got %v", infos)
	}
}

func TestListChannels(t *testing.T) {
	env := setupTestEnv(t)
	env.mgr.Create("zeta")
	env.mgr.Create("alpha")

	resp, err := http.Get(env.ts.URL + "/api/channels")
	if err != nil {
		t.Fatalf("GET /api/channels: %v", err)
	}
	defer resp.Body.Close()

	var infos []session.Info
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 2 || infos[0].Name != "alpha" || infos[1].Name != "zeta" {
		t.Fatalf("expected [alpha zeta], got %v", infos)
	}
	if infos[0].Status != session.StatusWaiting {
		t.Fatalf("expected waiting, got %s", infos[0].Status)
	}
}

func TestGetChannel(t *testing.T) {
	env := setupTestEnv(t)
	sess, _ := env.mgr.Create("tetris")
	sess.AddPlayer("a1", "alice", make(chanOutbox, 1))

	resp, err := http.Get(env.ts.URL + "/api/channels/tetris")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var info session.Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Host != "alice" || len(info.Players) != 1 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestGetChannelNotFound(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Get(env.ts.URL + "/api/channels/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestScores(t *testing.T) {
	env := setupTestEnv(t)
	env.store.AddScore("ann", 300)
	env.store.AddScore("bob", 900)
	env.store.AddScore("cat", 100)

	resp, err := http.Get(env.ts.URL + "/api/scores?n=2")
	if err != nil {
		t.Fatalf("GET /api/scores: %v", err)
	}
	defer resp.Body.Close()

	var entries []scoreEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "bob" || entries[1].Name != "ann" {
		t.Fatalf("expected [bob ann], got %v", entries)
	}
}

func TestScoresBadLimit(t *testing.T) {
	env := setupTestEnv(t)

	for _, n := range []string{"0", "abc", "1000"} {
		resp, err := http.Get(env.ts.URL + "/api/scores?n=" + n)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("n=%s: expected 400, got %d", n, resp.StatusCode)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Post(env.ts.URL+"/api/channels", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

// chanOutbox stands in for a connection in tests that add members directly.
type chanOutbox chan string

func (o chanOutbox) TrySend(frame string) bool {
	select {
	case o <- frame:
		return true
	default:
		return false
	}
}
