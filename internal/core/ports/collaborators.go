package ports

import (
	"context"
	"time"

	"streamcast/internal/core/domain"
)

// PlatformGateway is the narrow interface to the remote streaming
// platform. Every method may fail with *domain.PlatformError.
type PlatformGateway interface {
	CreateBroadcast(ctx context.Context, title, description, privacy string, scheduledStart *time.Time) (domain.BroadcastID, error)
	CreateStream(ctx context.Context, name, resolution, bitrate string) (*domain.IngestionInfo, error)
	Bind(ctx context.Context, broadcastID domain.BroadcastID, streamID domain.StreamID) error
	Transition(ctx context.Context, broadcastID domain.BroadcastID, target string) error
	GetStreamHealth(ctx context.Context, streamID domain.StreamID) (*domain.HealthSnapshot, error)
	GetBroadcastMetrics(ctx context.Context, broadcastID domain.BroadcastID) (*domain.BroadcastMetrics, error)
	GetLiveChatID(ctx context.Context, broadcastID domain.BroadcastID) (domain.ChatID, error)
	PostChatMessage(ctx context.Context, chatID domain.ChatID, text string) error
	DisableChat(ctx context.Context, broadcastID domain.BroadcastID) error
}

// ProcessRunner launches and terminates encoder processes.
type ProcessRunner interface {
	Launch(ctx context.Context, cmd domain.EncoderCommand) (domain.EncoderProcess, error)
	Terminate(proc domain.EncoderProcess) error
}

// Notifier delivers fire-and-forget event notifications. Delivery
// failures are logged by the implementation and never propagated.
type Notifier interface {
	Notify(ctx context.Context, subject, message string)
}

// DeferredRunner invokes a callback at or after a fire time, at least
// once. Scheduling an existing key replaces the pending job.
type DeferredRunner interface {
	Schedule(key string, fireAt time.Time, fn func(context.Context)) string
	Cancel(key string) bool
}

// MetricsRecorder receives orchestrator-side measurements.
type MetricsRecorder interface {
	SessionStarted()
	SessionEnded()
	EncoderLaunched()
	ReconnectAttempted(broadcastID string)
	ViewerCount(broadcastID string, viewers float64)
}
