package session

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"gridfall/internal/protocol"
	"gridfall/internal/storage"
)

var (
	ErrExists   = errors.New("channel already exists")
	ErrNotFound = errors.New("no such channel")
)

// Manager manages all open channels.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	store    *storage.Store
	log      *zap.Logger
}

// NewManager creates a channel manager.
func NewManager(store *storage.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		log:      log,
	}
}

// Create opens a new channel and persists it.
func (m *Manager) Create(name string) (*Session, error) {
	if !protocol.ValidName(name) {
		return nil, fmt.Errorf("invalid channel name %q", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	}
	if err := m.store.CreateChannel(name); err != nil {
		return nil, fmt.Errorf("persist channel: %w", err)
	}
	s := NewSession(name)
	m.sessions[name] = s
	return s, nil
}

// Get returns a channel by name.
func (m *Manager) Get(name string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s, nil
}

// Join adds a member to the named channel. Lookup and add happen under the
// manager lock, so cleanup cannot reap the channel in between.
func (m *Manager) Join(name, id, nick string, out Outbox) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := s.AddPlayer(id, nick, out); err != nil {
		return nil, err
	}
	return s, nil
}

// Names returns the open channel names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sessions))
	for name := range m.sessions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// List returns info for all open channels.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	slices.SortFunc(infos, func(a, b Info) int { return cmp.Compare(a.Name, b.Name) })
	return infos
}

// SaveStatus persists a channel's current status.
func (m *Manager) SaveStatus(s *Session) error {
	s.mu.RLock()
	status := s.Status
	s.mu.RUnlock()
	return m.store.UpdateChannelStatus(s.Name, string(status))
}

// Restore loads channels from the database on startup. They come back
// empty and waiting; cleanup removes the ones nobody rejoins.
func (m *Manager) Restore() error {
	rows, err := m.store.ListChannels("")
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		if row.Status != string(StatusWaiting) {
			if err := m.store.UpdateChannelStatus(row.Name, string(StatusWaiting)); err != nil {
				m.log.Warn("reset channel status", zap.String("channel", row.Name), zap.Error(err))
			}
		}
		m.sessions[row.Name] = NewSession(row.Name)
	}
	m.log.Info("channels restored", zap.Int("count", len(rows)))
	return nil
}

// Remove deletes a channel from memory and storage.
func (m *Manager) Remove(name string) {
	m.mu.Lock()
	delete(m.sessions, name)
	m.mu.Unlock()
	if err := m.store.DeleteChannel(name); err != nil {
		m.log.Warn("delete channel", zap.String("channel", name), zap.Error(err))
	}
}

// CleanupLoop removes channels that stayed empty longer than maxIdle, until
// ctx is done.
func (m *Manager) CleanupLoop(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.cleanup(time.Now(), maxIdle)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) cleanup(now time.Time, maxIdle time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, s := range m.sessions {
		if s.EmptyFor(now) > maxIdle {
			m.log.Info("cleaning up channel", zap.String("channel", name))
			if err := m.store.DeleteChannel(name); err != nil {
				m.log.Warn("delete channel", zap.String("channel", name), zap.Error(err))
			}
			delete(m.sessions, name)
		}
	}
}
