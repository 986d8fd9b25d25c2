package domain

import (
	"sync"
	"time"
)

type BroadcastID string
type StreamID string
type ChatID string

// SessionStatus is the lifecycle state of a streaming session.
type SessionStatus string

const (
	StatusPending      SessionStatus = "pending"
	StatusConfigured   SessionStatus = "configured"
	StatusStreaming    SessionStatus = "streaming"
	StatusReconnecting SessionStatus = "reconnecting"
	StatusStopped      SessionStatus = "stopped"
	StatusFailed       SessionStatus = "failed"
)

// Active reports whether the session is still under supervision.
func (s SessionStatus) Active() bool {
	switch s {
	case StatusConfigured, StatusStreaming, StatusReconnecting:
		return true
	}
	return false
}

// Terminal reports whether the session has reached an end state.
func (s SessionStatus) Terminal() bool {
	return s == StatusStopped || s == StatusFailed
}

// StreamContent describes the media source an encoder reads from.
type StreamContent struct {
	Source   string   `json:"source"`
	Loop     bool     `json:"loop"`
	Tags     []string `json:"tags,omitempty"`
	Category string   `json:"category,omitempty"`
}

// StreamRequest is the desired configuration for one session. It is
// immutable once the session starts, except Content, which may be
// replaced and takes effect on the next launch.
type StreamRequest struct {
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	PrivacyStatus      string        `json:"privacy_status"`
	Resolution         string        `json:"resolution"`
	Bitrate            string        `json:"bitrate"`
	Content            StreamContent `json:"content"`
	ScheduledStartTime *time.Time    `json:"scheduled_start_time,omitempty"`
	ExtraDestinations  []string      `json:"extra_destinations,omitempty"`
}

// EncoderCommand is a structured encoder invocation. Args are discrete
// argv tokens, never a pre-quoted shell string.
type EncoderCommand struct {
	Binary string
	Args   []string
}

// EncoderProcess is an opaque handle to a running encoder.
type EncoderProcess interface {
	ID() int
}

// IngestionInfo is the platform-side ingestion endpoint created for a session.
type IngestionInfo struct {
	StreamID         StreamID
	IngestionAddress string
	StreamName       string
}

// HealthSnapshot is the result of a single stream-health poll. It is
// produced fresh on every poll and never cached.
type HealthSnapshot struct {
	Status              string   `json:"status"`
	Health              string   `json:"health"`
	ConfigurationIssues []string `json:"configuration_issues,omitempty"`
}

// BroadcastMetrics carries per-poll broadcast statistics.
type BroadcastMetrics struct {
	ConcurrentViewers *int64 `json:"concurrent_viewers,omitempty"`
	LifecycleStatus   string `json:"lifecycle_status"`
}

// EventLogEntry is one timestamped line of a session's event log.
type EventLogEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// StreamSession is the mutable entity the orchestrator manages. Scalar
// fields are mutated only by the orchestrator and the session's own
// health monitor under the orchestrator's per-session lock; the event
// log carries its own lock so appends stay safe from either actor.
type StreamSession struct {
	Name            string        `json:"name"`
	BroadcastID     BroadcastID   `json:"broadcast_id"`
	StreamID        StreamID      `json:"stream_id"`
	IngestionURL    string        `json:"ingestion_url"`
	LiveChatID      ChatID        `json:"live_chat_id,omitempty"`
	Request         StreamRequest `json:"request"`
	Process         EncoderProcess
	StartedAt       *time.Time `json:"started_at,omitempty"`
	LastHealthCheck *time.Time `json:"last_health_check,omitempty"`
	ReconnectCount  int        `json:"reconnect_attempts"`
	Status          SessionStatus

	eventsMu sync.Mutex
	events   []EventLogEntry
}

// AppendEvent records a timestamped entry in the session's event log and
// returns it.
func (s *StreamSession) AppendEvent(message string) EventLogEntry {
	entry := EventLogEntry{At: time.Now().UTC(), Message: message}
	s.eventsMu.Lock()
	s.events = append(s.events, entry)
	s.eventsMu.Unlock()
	return entry
}

// EventTail returns a copy of the last n event log entries.
func (s *StreamSession) EventTail(n int) []EventLogEntry {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()

	start := len(s.events) - n
	if start < 0 {
		start = 0
	}
	tail := make([]EventLogEntry, len(s.events)-start)
	copy(tail, s.events[start:])
	return tail
}

// SessionStatusView is the fresh status report returned by GetStatus.
type SessionStatusView struct {
	Status            SessionStatus     `json:"status"`
	StartedAt         *time.Time        `json:"started_at,omitempty"`
	ReconnectAttempts int               `json:"reconnect_attempts"`
	Health            *HealthSnapshot   `json:"health"`
	Metrics           *BroadcastMetrics `json:"metrics"`
	EventTail         []EventLogEntry   `json:"event_tail"`
}
