package session

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Info describes a running session.
type Info struct {
	ID        string    `json:"id"`
	Group     string    `json:"group"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
	Stats     Stats     `json:"stats"`
}

// Manager keeps track of the sessions currently streaming in this process.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Pipeline
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Pipeline)}
}

// Track registers p and returns a function that removes it again.
func (m *Manager) Track(p *Pipeline) func() {
	m.mu.Lock()
	m.sessions[p.ID] = p
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.sessions, p.ID)
		m.mu.Unlock()
	}
}

// List returns the tracked sessions ordered by start time.
func (m *Manager) List() []Info {
	m.mu.RLock()
	infos := make([]Info, 0, len(m.sessions))
	for _, p := range m.sessions {
		infos = append(infos, Info{
			ID:        p.ID,
			Group:     p.Group,
			State:     p.State().String(),
			StartedAt: p.StartedAt,
			Stats:     p.Stats(),
		})
	}
	m.mu.RUnlock()

	slices.SortFunc(infos, func(a, b Info) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return infos
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
