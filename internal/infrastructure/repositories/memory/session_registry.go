package memory

import (
	"context"
	"sync"

	"streamcast/internal/core/domain"
	"streamcast/internal/core/ports"
)

// SessionRegistry is the in-memory keyed store of sessions. Sessions
// are never removed; terminal sessions stay queryable.
type SessionRegistry struct {
	sessions map[domain.BroadcastID]*domain.StreamSession
	mu       sync.RWMutex
}

func NewSessionRegistry() ports.SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[domain.BroadcastID]*domain.StreamSession),
	}
}

func (r *SessionRegistry) Register(ctx context.Context, session *domain.StreamSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.BroadcastID]; exists {
		return domain.ErrSessionExists
	}

	r.sessions[session.BroadcastID] = session
	return nil
}

func (r *SessionRegistry) Get(ctx context.Context, id domain.BroadcastID) (*domain.StreamSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrUnknownSession
	}

	return session, nil
}

func (r *SessionRegistry) List(ctx context.Context) ([]*domain.StreamSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*domain.StreamSession, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}

	return sessions, nil
}
