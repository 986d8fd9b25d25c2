package notify

import (
	"context"

	"streamcast/internal/core/ports"
)

// Multi fans one notification out to every configured transport. With
// no transports it is a no-op, which keeps the orchestrator free of
// nil checks.
type Multi struct {
	notifiers []ports.Notifier
}

func NewMulti(notifiers ...ports.Notifier) ports.Notifier {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Notify(ctx context.Context, subject, message string) {
	for _, n := range m.notifiers {
		n.Notify(ctx, subject, message)
	}
}
