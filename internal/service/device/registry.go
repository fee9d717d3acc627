package device

import (
	"sort"
	"sync"

	"github.com/sandevgo/tusknet/internal/core"
)

type SessionRegistry interface {
	Register(id string, s *Session) error
	Lookup(id string) (*Session, error)
	Remove(id string)
	RemoveSession(id string, s *Session) bool
	List() []core.DeviceInfo
	Drain() []*Session
}

var _ SessionRegistry = (*Registry)(nil)

// Registry maps device ids to sessions. The lock guards the map only and is
// never held while a device command runs.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Register inserts s under id, replacing a Failed or Disconnected entry.
func (r *Registry) Register(id string, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.sessions[id]; exists && !old.State().Terminal() {
		return core.DuplicateDevice(id)
	}

	r.sessions[id] = s
	return nil
}

func (r *Registry) Lookup(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, core.UnknownDevice(id)
	}
	return s, nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
}

// RemoveSession deletes id only while it still maps to s, so a cleanup never
// removes a session registered by a later connect.
func (r *Registry) RemoveSession(id string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[id]; ok && cur == s {
		delete(r.sessions, id)
		return true
	}
	return false
}

// List returns a snapshot sorted by device id.
func (r *Registry) List() []core.DeviceInfo {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	result := make([]core.DeviceInfo, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, s.Describe())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DeviceID < result[j].DeviceID
	})
	return result
}

// Drain empties the registry and hands back every session for teardown.
func (r *Registry) Drain() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	r.sessions = make(map[string]*Session)
	return result
}
