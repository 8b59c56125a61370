// Package session keeps per-browser state between requests.
package session

import (
	"context"
	"sync"
	"time"

	"pdf-rocket/internal/domain"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

type Session struct {
	ID      string
	History *domain.History

	lastAccessed time.Time
}

// Manager holds sessions in memory and forgets the ones idle for longer than ttl.
type Manager struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	ttl          time.Duration
	historyLimit int
	logger       *zlog.Zerolog
	now          func() time.Time
}

func NewManager(ttl time.Duration, historyLimit int, logger *zlog.Zerolog) *Manager {
	return &Manager{
		sessions:     make(map[string]*Session),
		ttl:          ttl,
		historyLimit: historyLimit,
		logger:       logger,
		now:          time.Now,
	}
}

// Get returns the live session with the given id or starts a new one.
// The boolean reports whether a new session was created.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if s, ok := m.sessions[id]; ok && !m.expired(s, now) {
		s.lastAccessed = now
		return s, false
	}

	s := &Session{
		ID:           uuid.New().String(),
		History:      domain.NewHistory(m.historyLimit),
		lastAccessed: now,
	}
	m.sessions[s.ID] = s
	return s, true
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug().Int("removed", n).Int("active", m.Len()).Msg("Expired sessions removed")
			}
		}
	}
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.lastAccessed) > m.ttl
}
