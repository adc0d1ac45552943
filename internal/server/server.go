package server

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"gridfall/internal/piece"
	"gridfall/internal/session"
	"gridfall/internal/storage"
)

// maxHighScores is how many online high scores are listed.
const maxHighScores = 10

// Server is the HTTP server: the websocket endpoint plus a small read-only
// JSON API.
type Server struct {
	mux     *http.ServeMux
	manager *session.Manager
	store   *storage.Store
	log     *zap.Logger

	mu    sync.Mutex
	nicks map[string]string // nick -> connection id

	nextShape func() int
}

// New creates a server with all routes.
func New(manager *session.Manager, store *storage.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		mux:       http.NewServeMux(),
		manager:   manager,
		store:     store,
		log:       log,
		nicks:     make(map[string]string),
		nextShape: func() int { return rand.IntN(piece.Shapes()) },
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	s.mux.HandleFunc("GET /api/channels", s.handleListChannels)
	s.mux.HandleFunc("GET /api/channels/{name}", s.handleGetChannel)
	s.mux.HandleFunc("GET /api/scores", s.handleScores)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.List())
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.PathValue("name"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "channel not found"})
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

type scoreEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	n := maxHighScores
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be between 1 and 100"})
			return
		}
		n = parsed
	}
	rows, err := s.store.TopScores(n)
	if err != nil {
		s.log.Error("top scores", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load scores"})
		return
	}
	out := make([]scoreEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, scoreEntry{Name: row.Name, Score: row.Score})
	}
	writeJSON(w, http.StatusOK, out)
}

// claimNick reserves nick for id, releasing old. It fails if someone else
// holds nick.
func (s *Server) claimNick(id, old, nick string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if holder, ok := s.nicks[nick]; ok && holder != id {
		return false
	}
	if old != "" && old != nick {
		delete(s.nicks, old)
	}
	s.nicks[nick] = id
	return true
}

func (s *Server) releaseNick(nick string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nicks, nick)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
