package ports

import (
	"context"

	"streamcast/internal/core/domain"
)

// StreamOrchestrator drives the lifecycle of streaming sessions.
type StreamOrchestrator interface {
	StartStream(ctx context.Context, name string, req domain.StreamRequest) (*domain.StreamSession, error)
	StopStream(ctx context.Context, broadcastID domain.BroadcastID, reason string) error
	ScheduleStream(ctx context.Context, name string, req domain.StreamRequest) (string, error)
	UpdateContent(ctx context.Context, broadcastID domain.BroadcastID, content domain.StreamContent) error
	GetStatus(ctx context.Context, broadcastID domain.BroadcastID) (*domain.SessionStatusView, error)
	PostChatMessage(ctx context.Context, broadcastID domain.BroadcastID, message string) error
	DisableChat(ctx context.Context, broadcastID domain.BroadcastID) error
	ListSessions(ctx context.Context) ([]*domain.StreamSession, error)
}
