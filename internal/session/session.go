package session

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"gridfall/internal/protocol"
)

// Status represents the channel lifecycle.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
)

// StartingLives is what every player has when a channel game starts.
const StartingLives = 3

// Outbox accepts frames for one connection without blocking. A full outbox
// drops the frame.
type Outbox interface {
	TrySend(frame string) bool
}

// Player represents a connected channel member.
type Player struct {
	ID    string
	Nick  string
	Out   Outbox
	Score int
	Lives int
	Dead  bool
}

// Session is one lobby channel with its members.
type Session struct {
	mu         sync.RWMutex
	Name       string
	Status     Status
	HostID     string
	Players    map[string]*Player
	order      []string // join order, for host succession
	emptySince time.Time
}

// NewSession creates an empty channel in the waiting state.
func NewSession(name string) *Session {
	return &Session{
		Name:       name,
		Status:     StatusWaiting,
		Players:    make(map[string]*Player),
		emptySince: time.Now(),
	}
}

// AddPlayer adds a member. The first member of an empty channel becomes host.
func (s *Session) AddPlayer(id, nick string, out Outbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.Players[id]; exists {
		return fmt.Errorf("already in channel %s", s.Name)
	}
	s.Players[id] = &Player{ID: id, Nick: nick, Out: out, Lives: StartingLives}
	s.order = append(s.order, id)
	if s.HostID == "" {
		s.HostID = id
	}
	return nil
}

// RemovePlayer removes a member. If the host left and others remain, the
// longest-standing member becomes host and is returned as newHost.
func (s *Session) RemovePlayer(id string) (newHost string, empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Players[id]; !ok {
		return "", len(s.Players) == 0
	}
	delete(s.Players, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })

	if len(s.Players) == 0 {
		s.HostID = ""
		s.Status = StatusWaiting
		s.emptySince = time.Now()
		return "", true
	}
	if s.HostID == id {
		s.HostID = s.order[0]
		newHost = s.HostID
	}
	s.finishIfAllDeadLocked()
	return newHost, false
}

// State returns the channel status.
func (s *Session) State() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// IsHost reports whether id is the channel host.
func (s *Session) IsHost(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.HostID == id
}

// Rename changes a member's nickname.
func (s *Session) Rename(id, nick string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Players[id]
	if ok {
		p.Nick = nick
	}
	return ok
}

// Nicks returns the members' nicknames, sorted.
func (s *Session) Nicks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nicks := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		nicks = append(nicks, p.Nick)
	}
	slices.Sort(nicks)
	return nicks
}

// Start transitions the channel from waiting to playing. Only the host may
// start it.
func (s *Session) Start(byID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.HostID != byID {
		return fmt.Errorf("only the host can start the game")
	}
	if s.Status != StatusWaiting {
		return fmt.Errorf("game already running in %s", s.Name)
	}
	for _, p := range s.Players {
		p.Score, p.Lives, p.Dead = 0, StartingLives, false
	}
	s.Status = StatusPlaying
	return nil
}

// SetScore records a member's reported score.
func (s *Session) SetScore(id string, score int) {
	s.update(id, func(p *Player) { p.Score = score })
}

// SetLives records a member's reported lives.
func (s *Session) SetLives(id string, lives int) {
	s.update(id, func(p *Player) { p.Lives = min(lives, StartingLives) })
}

// Kill marks a member as eliminated. When every member is out the channel
// returns to waiting.
func (s *Session) Kill(id string) {
	s.update(id, func(p *Player) { p.Lives, p.Dead = 0, true })
}

func (s *Session) update(id string, fn func(*Player)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Players[id]
	if !ok {
		return
	}
	fn(p)
	s.finishIfAllDeadLocked()
}

func (s *Session) finishIfAllDeadLocked() {
	if s.Status != StatusPlaying {
		return
	}
	for _, p := range s.Players {
		if !p.Dead {
			return
		}
	}
	s.Status = StatusWaiting
}

// Scoreboard returns every member's score, highest first.
func (s *Session) Scoreboard() []protocol.PlayerScore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.PlayerScore, 0, len(s.Players))
	for _, p := range s.Players {
		out = append(out, protocol.PlayerScore{Name: p.Nick, Score: p.Score, Lives: p.Lives, Dead: p.Dead})
	}
	slices.SortFunc(out, func(a, b protocol.PlayerScore) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Broadcast sends a frame to all members.
func (s *Session) Broadcast(frame string) {
	s.BroadcastExcept("", frame)
}

// BroadcastExcept sends a frame to all members but one.
func (s *Session) BroadcastExcept(skipID, frame string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, p := range s.Players {
		if id != skipID {
			p.Out.TrySend(frame) // drop message if buffer full
		}
	}
}

// SendTo sends a frame to one member.
func (s *Session) SendTo(id, frame string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.Players[id]
	return ok && p.Out.TrySend(frame)
}

// EmptyFor reports how long the channel has had no members, or zero if it
// has any.
func (s *Session) EmptyFor(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Players) > 0 {
		return 0
	}
	return now.Sub(s.emptySince)
}

// Info returns channel info for the API.
type Info struct {
	Name    string   `json:"name"`
	Status  Status   `json:"status"`
	Players []string `json:"players"`
	Host    string   `json:"host"`
}

func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nicks := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		nicks = append(nicks, p.Nick)
	}
	slices.Sort(nicks)
	info := Info{Name: s.Name, Status: s.Status, Players: nicks}
	if h, ok := s.Players[s.HostID]; ok {
		info.Host = h.Nick
	}
	return info
}
