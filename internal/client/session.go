// Package client ties a transport to the lobby and, during a game, to the
// network piece queue.
package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"gridfall/internal/game"
	"gridfall/internal/lobby"
	"gridfall/internal/netqueue"
	"gridfall/internal/protocol"
	"gridfall/internal/transport"
)

const DefaultEventBuffer = 64

// Config tunes a Session.
type Config struct {
	Nick        string
	Queue       netqueue.Config
	EventBuffer int
}

// Handlers receive the game-related server messages the lobby does not
// handle. Nil handlers are skipped. They run on the goroutine that calls
// Dispatch.
type Handlers struct {
	Scores   func(protocol.Scores)
	Board    func(protocol.Board)
	HiScores func(protocol.HiScores)
	NewScore func(protocol.NewScore)
}

// Session is one connection to the server. Run owns the transport's read
// goroutine. Interrupt may be called from anywhere; everything else,
// including Dispatch and Close, belongs to the game goroutine.
type Session struct {
	conn     transport.Transport
	cfg      Config
	lobby    *lobby.Lobby
	handlers Handlers
	log      *zap.Logger

	events chan protocol.Message
	queue  atomic.Pointer[netqueue.Queue]
	game   *game.Game

	closeOnce sync.Once
	closeErr  error
}

// New wraps conn. l receives lobby events; it may be nil.
func New(conn transport.Transport, cfg Config, l lobby.Listener, h Handlers, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}
	return &Session{
		conn:     conn,
		cfg:      cfg,
		lobby:    lobby.New(conn, cfg.Nick, l, log.Named("lobby")),
		handlers: h,
		log:      log,
		events:   make(chan protocol.Message, cfg.EventBuffer),
	}
}

func (s *Session) Lobby() *lobby.Lobby { return s.lobby }

// Events delivers decoded server messages other than PIECE. Pass each one to
// Dispatch on the game goroutine.
func (s *Session) Events() <-chan protocol.Message { return s.events }

// Run reads from the transport until ctx ends or the connection closes.
func (s *Session) Run(ctx context.Context) error {
	return s.conn.Run(ctx, s.receive)
}

// receive runs on the transport goroutine and never blocks.
func (s *Session) receive(frame string) {
	msg, err := protocol.Decode(frame, protocol.FromServer)
	if err != nil {
		s.log.Warn("dropping frame", zap.String("frame", frame), zap.Error(err))
		return
	}
	if p, ok := msg.(protocol.Piece); ok {
		q := s.queue.Load()
		if q == nil {
			s.log.Debug("piece outside a game", zap.Int("shape", p.Shape))
			return
		}
		q.OnPieceReceived(p.Shape)
		return
	}
	select {
	case s.events <- msg:
	default:
		s.log.Warn("event buffer full, dropping message", zap.String("kind", string(msg.Kind())))
	}
}

// Dispatch applies one message from Events.
func (s *Session) Dispatch(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.Scores:
		if s.handlers.Scores != nil {
			s.handlers.Scores(m)
		}
	case protocol.Board:
		if s.handlers.Board != nil {
			s.handlers.Board(m)
		}
	case protocol.HiScores:
		if s.handlers.HiScores != nil {
			s.handlers.HiScores(m)
		}
	case protocol.NewScore:
		if s.handlers.NewScore != nil {
			s.handlers.NewScore(m)
		}
	default:
		s.lobby.Handle(msg)
	}
}

// NewGame creates a multiplayer game fed by a fresh piece queue and reporting
// to the server. The queue closes when the game ends. Any previous game is
// ended first.
func (s *Session) NewGame(ctx context.Context, opts game.Options) *game.Game {
	s.endGame(ctx)

	q := netqueue.New(s.conn, s.cfg.Queue, s.log.Named("queue"))
	s.queue.Store(q)

	opts.Source = q
	opts.Reporter = game.NewWireReporter(s.conn, s.log)
	if opts.Log == nil {
		opts.Log = s.log.Named("game")
	}
	over := opts.Hooks.GameOver
	opts.Hooks.GameOver = func(score int) {
		q.Close()
		if over != nil {
			over(score)
		}
	}
	s.game = game.New(opts)
	return s.game
}

// RequestHighScores asks for the online high score table.
func (s *Session) RequestHighScores(ctx context.Context) error {
	return s.send(ctx, protocol.HiScoresRequest{})
}

// SubmitScore submits a finished game's score to the online table.
func (s *Session) SubmitScore(ctx context.Context, name string, score int) error {
	if !protocol.ValidName(name) {
		return fmt.Errorf("submit score: invalid name %q", name)
	}
	return s.send(ctx, protocol.SubmitScore{Entry: protocol.HiScore{Name: name, Score: score}})
}

// Interrupt closes the current piece queue so a game goroutine blocked
// waiting for a piece returns. The game then ends on that goroutine.
func (s *Session) Interrupt() {
	if q := s.queue.Load(); q != nil {
		q.Close()
	}
}

// Close tells the server we are leaving, releases any goroutine waiting
// for a piece, then closes the transport.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.endGame(ctx)
		if _, ok := s.lobby.Channel(); ok {
			if err := s.send(ctx, protocol.Part{}); err != nil {
				s.log.Warn("part on close", zap.Error(err))
			}
		}
		if q := s.queue.Swap(nil); q != nil {
			q.Close()
		}
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// endGame ends an active game, which sends DIE and closes its queue.
func (s *Session) endGame(ctx context.Context) {
	if s.game == nil {
		return
	}
	if s.game.State() == game.StateActive {
		s.game.End(ctx)
	}
	if q := s.queue.Load(); q != nil {
		q.Close()
	}
	s.game = nil
}

func (s *Session) send(ctx context.Context, m protocol.Message) error {
	if err := s.conn.Send(ctx, protocol.Encode(m)); err != nil {
		return fmt.Errorf("send %s: %w", m.Kind(), err)
	}
	return nil
}
