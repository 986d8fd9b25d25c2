package ports

import (
	"context"

	"streamcast/internal/core/domain"
)

// SessionRegistry is the keyed store of sessions. The orchestrator is
// its sole mutator; sessions stay queryable after reaching a terminal
// status.
type SessionRegistry interface {
	Register(ctx context.Context, session *domain.StreamSession) error
	Get(ctx context.Context, id domain.BroadcastID) (*domain.StreamSession, error)
	List(ctx context.Context) ([]*domain.StreamSession, error)
}
