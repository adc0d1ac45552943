package server

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gridfall/internal/protocol"
	"gridfall/internal/session"
	"gridfall/internal/transport"
)

// player is one websocket connection. Its fields are only touched by the
// connection's read goroutine.
type player struct {
	id   string
	nick string
	conn *transport.Conn
	sess *session.Session
	log  *zap.Logger
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := transport.Accept(w, r, s.log)
	if err != nil {
		s.log.Warn("websocket accept", zap.Error(err))
		return
	}

	p := &player{id: uuid.NewString(), conn: conn}
	p.log = s.log.With(zap.String("conn", p.id))
	p.nick = s.guestNick(p.id)
	p.log.Info("player connected", zap.String("nick", p.nick))

	// tell the client who the server thinks it is
	s.reply(p, protocol.Nick{Name: p.nick})

	err = conn.Run(r.Context(), func(frame string) { s.handleFrame(p, frame) })
	if err != nil {
		p.log.Debug("connection ended", zap.Error(err))
	}

	s.leave(p)
	s.releaseNick(p.nick)
	p.log.Info("player disconnected", zap.String("nick", p.nick))
}

func (s *Server) guestNick(id string) string {
	for {
		nick := "guest-" + id[:8]
		if s.claimNick(id, "", nick) {
			return nick
		}
		id = uuid.NewString()
	}
}

func (s *Server) handleFrame(p *player, frame string) {
	msg, err := protocol.Decode(frame, protocol.FromClient)
	if err != nil {
		p.log.Debug("bad frame", zap.String("frame", frame), zap.Error(err))
		s.reply(p, protocol.Error{Text: err.Error()})
		return
	}

	switch m := msg.(type) {
	case protocol.PieceRequest:
		s.reply(p, protocol.Piece{Shape: s.nextShape()})

	case protocol.List:
		s.reply(p, protocol.Channels{Names: s.manager.Names()})

	case protocol.Create:
		if _, err := s.manager.Create(m.Name); err != nil {
			s.reply(p, protocol.Error{Text: err.Error()})
			return
		}
		p.log.Info("channel created", zap.String("channel", m.Name))
		s.join(p, m.Name)

	case protocol.Join:
		if p.sess != nil && p.sess.Name == m.Name {
			s.reply(p, protocol.Error{Text: "already in " + m.Name})
			return
		}
		s.join(p, m.Name)

	case protocol.Part:
		if !s.requireChannel(p) {
			return
		}
		s.leave(p)
		s.reply(p, protocol.Parted{})

	case protocol.Nick:
		s.rename(p, m.Name)

	case protocol.Msg:
		if s.requireChannel(p) {
			p.sess.Broadcast(protocol.Encode(protocol.Msg{From: p.nick, Text: m.Text}))
		}

	case protocol.UsersRequest:
		if s.requireChannel(p) {
			s.reply(p, protocol.Users{Names: p.sess.Nicks()})
		}

	case protocol.Start:
		if !s.requireChannel(p) {
			return
		}
		if err := p.sess.Start(p.id); err != nil {
			s.reply(p, protocol.Error{Text: err.Error()})
			return
		}
		s.saveStatus(p.sess)
		p.sess.Broadcast(protocol.Encode(protocol.Start{}))
		s.broadcastScores(p.sess)

	case protocol.Score:
		if s.requireChannel(p) {
			p.sess.SetScore(p.id, m.N)
			s.broadcastScores(p.sess)
		}

	case protocol.Lives:
		if s.requireChannel(p) {
			p.sess.SetLives(p.id, m.N)
			s.broadcastScores(p.sess)
		}

	case protocol.Die:
		if !s.requireChannel(p) {
			return
		}
		before := p.sess.State()
		p.sess.Kill(p.id)
		s.broadcastScores(p.sess)
		if before == session.StatusPlaying && p.sess.State() == session.StatusWaiting {
			p.log.Info("channel game over", zap.String("channel", p.sess.Name))
			s.saveStatus(p.sess)
		}

	case protocol.Board:
		if s.requireChannel(p) {
			p.sess.BroadcastExcept(p.id, protocol.Encode(protocol.Board{From: p.nick, Data: m.Data}))
		}

	case protocol.HiScoresRequest:
		rows, err := s.store.TopScores(maxHighScores)
		if err != nil {
			p.log.Error("top scores", zap.Error(err))
			s.reply(p, protocol.Error{Text: "high scores unavailable"})
			return
		}
		entries := make([]protocol.HiScore, 0, len(rows))
		for _, row := range rows {
			entries = append(entries, protocol.HiScore{Name: row.Name, Score: row.Score})
		}
		s.reply(p, protocol.HiScores{Entries: entries})

	case protocol.SubmitScore:
		if err := s.store.AddScore(m.Entry.Name, m.Entry.Score); err != nil {
			p.log.Error("add score", zap.Error(err))
			s.reply(p, protocol.Error{Text: "could not save score"})
			return
		}
		s.reply(p, protocol.NewScore{Entry: m.Entry})

	default:
		s.reply(p, protocol.Error{Text: "unexpected " + string(msg.Kind())})
	}
}

// join moves p into the named channel, leaving its current one only once
// the join has succeeded.
func (s *Server) join(p *player, name string) {
	sess, err := s.manager.Join(name, p.id, p.nick, p.conn)
	if err != nil {
		s.reply(p, protocol.Error{Text: err.Error()})
		return
	}
	s.leave(p)
	p.sess = sess
	s.reply(p, protocol.Join{Name: sess.Name})
	sess.Broadcast(protocol.Encode(protocol.Users{Names: sess.Nicks()}))
	if sess.IsHost(p.id) {
		s.reply(p, protocol.Host{})
	}
}

// leave removes p from its channel, handing the host role on if needed.
func (s *Server) leave(p *player) {
	sess := p.sess
	if sess == nil {
		return
	}
	p.sess = nil

	before := sess.State()
	newHost, empty := sess.RemovePlayer(p.id)
	if before != sess.State() {
		s.saveStatus(sess)
	}
	if empty {
		return
	}
	sess.Broadcast(protocol.Encode(protocol.Users{Names: sess.Nicks()}))
	if newHost != "" {
		sess.SendTo(newHost, protocol.Encode(protocol.Host{}))
	}
	if before == session.StatusPlaying {
		s.broadcastScores(sess)
	}
}

func (s *Server) rename(p *player, nick string) {
	if nick == p.nick {
		s.reply(p, protocol.Nick{Name: nick})
		return
	}
	if !s.claimNick(p.id, p.nick, nick) {
		s.reply(p, protocol.Error{Text: "nickname " + nick + " is taken"})
		return
	}
	old := p.nick
	p.nick = nick
	s.reply(p, protocol.Nick{Name: nick})
	if p.sess != nil {
		p.sess.Rename(p.id, nick)
		p.sess.BroadcastExcept(p.id, protocol.Encode(protocol.Nick{Old: old, Name: nick}))
	}
}

func (s *Server) requireChannel(p *player) bool {
	if p.sess == nil {
		s.reply(p, protocol.Error{Text: "not in a channel"})
		return false
	}
	return true
}

func (s *Server) broadcastScores(sess *session.Session) {
	sess.Broadcast(protocol.Encode(protocol.Scores{Entries: sess.Scoreboard()}))
}

func (s *Server) saveStatus(sess *session.Session) {
	if err := s.manager.SaveStatus(sess); err != nil {
		s.log.Warn("save channel status", zap.String("channel", sess.Name), zap.Error(err))
	}
}

func (s *Server) reply(p *player, m protocol.Message) {
	p.conn.TrySend(protocol.Encode(m))
}
