package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"streamcast/internal/core/domain"
	"streamcast/internal/core/ports"
	"streamcast/pkg/tracing"

	"go.uber.org/zap"
)

// Config tunes the orchestrator and its health monitors.
type Config struct {
	MonitorInterval time.Duration

	// MaxReconnectAttempts bounds the reconnect budget per session.
	// Zero means unlimited.
	MaxReconnectAttempts int

	// ReconnectBackoff is the delay before the first relaunch after a
	// failed health check; it doubles per consecutive attempt up to
	// ReconnectBackoffMax. Zero disables the extra delay.
	ReconnectBackoff    time.Duration
	ReconnectBackoffMax time.Duration

	DefaultPrivacyStatus string
	DefaultResolution    string
	DefaultBitrate       string
}

func DefaultOrchestratorConfig() Config {
	return Config{
		MonitorInterval:      30 * time.Second,
		MaxReconnectAttempts: 10,
		ReconnectBackoff:     2 * time.Second,
		ReconnectBackoffMax:  60 * time.Second,
		DefaultPrivacyStatus: "unlisted",
		DefaultResolution:    "1080p",
		DefaultBitrate:       "4500k",
	}
}

// supervision carries the per-session concurrency state: the lock that
// serializes launch against stop, and the cancel handle for the
// session's health monitor.
type supervision struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

type Orchestrator struct {
	cfg      Config
	registry ports.SessionRegistry
	gateway  ports.PlatformGateway
	runner   ports.ProcessRunner
	notifier ports.Notifier
	deferred ports.DeferredRunner
	metrics  ports.MetricsRecorder
	events   *EventHub
	logger   *zap.SugaredLogger

	mu         sync.Mutex
	supervised map[domain.BroadcastID]*supervision

	baseCtx context.Context
	stopAll context.CancelFunc
	wg      sync.WaitGroup
}

var _ ports.StreamOrchestrator = (*Orchestrator)(nil)

// NewOrchestrator wires the session-lifecycle coordinator. The metrics
// recorder may be nil.
func NewOrchestrator(
	cfg Config,
	registry ports.SessionRegistry,
	gateway ports.PlatformGateway,
	runner ports.ProcessRunner,
	notifier ports.Notifier,
	deferred ports.DeferredRunner,
	metrics ports.MetricsRecorder,
	events *EventHub,
	logger *zap.SugaredLogger,
) *Orchestrator {
	baseCtx, stopAll := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:        cfg,
		registry:   registry,
		gateway:    gateway,
		runner:     runner,
		notifier:   notifier,
		deferred:   deferred,
		metrics:    metrics,
		events:     events,
		logger:     logger,
		supervised: make(map[domain.BroadcastID]*supervision),
		baseCtx:    baseCtx,
		stopAll:    stopAll,
	}
}

func (o *Orchestrator) StartStream(ctx context.Context, name string, req domain.StreamRequest) (*domain.StreamSession, error) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.start_stream")
	defer span.End()

	o.applyDefaults(&req)

	broadcastID, err := o.gateway.CreateBroadcast(ctx, req.Title, req.Description, req.PrivacyStatus, req.ScheduledStartTime)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("create broadcast: %w", err)
	}
	span.SetAttributes(tracing.BroadcastIDKey.String(string(broadcastID)), tracing.SessionNameKey.String(name))

	info, err := o.gateway.CreateStream(ctx, name, req.Resolution, req.Bitrate)
	if err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}

	if err := o.gateway.Bind(ctx, broadcastID, info.StreamID); err != nil {
		return nil, fmt.Errorf("bind broadcast: %w", err)
	}

	chatID, err := o.gateway.GetLiveChatID(ctx, broadcastID)
	if err != nil {
		return nil, fmt.Errorf("resolve live chat: %w", err)
	}

	session := &domain.StreamSession{
		Name:         name,
		BroadcastID:  broadcastID,
		StreamID:     info.StreamID,
		IngestionURL: info.IngestionAddress + "/" + info.StreamName,
		LiveChatID:   chatID,
		Request:      req,
		Status:       domain.StatusConfigured,
	}
	o.logEvent(session, "session configured and bound")

	if err := o.registry.Register(ctx, session); err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}

	sup := o.superviseSession(session)

	if req.ScheduledStartTime == nil {
		sup.mu.Lock()
		err := o.launch(ctx, session)
		sup.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	if chatID != "" {
		if err := o.gateway.PostChatMessage(ctx, chatID, "Streaming bot connected."); err != nil {
			o.logger.Warnw("chat announcement failed", "broadcast_id", broadcastID, "error", err)
		}
	}

	o.notifier.Notify(ctx, fmt.Sprintf("Stream %s configured", name),
		fmt.Sprintf("Broadcast %s is ready with ingestion %s.", broadcastID, session.IngestionURL))

	if o.metrics != nil {
		o.metrics.SessionStarted()
	}
	return session, nil
}

// launch synthesizes and starts the encoder, then asks the platform to
// go live. Callers must hold the session's supervision lock.
func (o *Orchestrator) launch(ctx context.Context, session *domain.StreamSession) error {
	cmd := SynthesizeEncoderCommand(
		session.Request.Content,
		session.Request.Resolution,
		session.Request.Bitrate,
		session.IngestionURL,
		session.Request.ExtraDestinations,
	)
	o.logEvent(session, fmt.Sprintf("launching encoder for %s", session.Request.Content.Source))

	proc, err := o.runner.Launch(ctx, cmd)
	if err != nil {
		return fmt.Errorf("launch encoder: %w", err)
	}

	now := time.Now().UTC()
	session.Process = proc
	session.StartedAt = &now
	session.Status = domain.StatusStreaming

	if o.metrics != nil {
		o.metrics.EncoderLaunched()
	}

	if err := o.gateway.Transition(ctx, session.BroadcastID, "live"); err != nil {
		return fmt.Errorf("transition to live: %w", err)
	}

	o.notifier.Notify(ctx, fmt.Sprintf("Stream %s started", session.Name),
		fmt.Sprintf("Broadcast %s is now live.", session.BroadcastID))
	return nil
}

func (o *Orchestrator) StopStream(ctx context.Context, broadcastID domain.BroadcastID, reason string) error {
	ctx, span := tracing.TraceOperation(ctx, "stop_stream", string(broadcastID))
	defer span.End()

	session, err := o.registry.Get(ctx, broadcastID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSession) {
			return nil
		}
		return err
	}

	sup := o.supervisionFor(broadcastID)

	// Cancel the monitor before taking the lock so an in-flight
	// reconnect observes the cancellation and releases it.
	sup.cancel()

	sup.mu.Lock()
	defer sup.mu.Unlock()

	if session.Status.Terminal() {
		return nil
	}

	if session.Process != nil {
		o.logEvent(session, "stopping encoder process")
		if err := o.runner.Terminate(session.Process); err != nil {
			o.logger.Errorw("failed to terminate encoder", "broadcast_id", broadcastID, "error", err)
		}
		session.Process = nil
	}

	transitionErr := o.gateway.Transition(ctx, broadcastID, "complete")

	session.Status = domain.StatusStopped
	o.logEvent(session, fmt.Sprintf("session stopped: %s", reason))
	o.notifier.Notify(ctx, fmt.Sprintf("Stream %s stopped", session.Name), reason)
	if o.metrics != nil {
		o.metrics.SessionEnded()
	}

	if transitionErr != nil {
		return fmt.Errorf("transition to complete: %w", transitionErr)
	}
	return nil
}

func (o *Orchestrator) ScheduleStream(ctx context.Context, name string, req domain.StreamRequest) (string, error) {
	o.applyDefaults(&req)

	if req.ScheduledStartTime == nil {
		return "", domain.ErrScheduleTimeRequired
	}

	fireAt := *req.ScheduledStartTime
	key := fmt.Sprintf("%s-%s", name, fireAt.UTC().Format(time.RFC3339))

	jobID := o.deferred.Schedule(key, fireAt, func(jobCtx context.Context) {
		// The fire time has arrived: start immediately rather than
		// re-registering a still-pending scheduled broadcast.
		fired := req
		fired.ScheduledStartTime = nil
		if _, err := o.StartStream(jobCtx, name, fired); err != nil {
			o.logger.Errorw("scheduled stream failed to start", "name", name, "job_id", key, "error", err)
		}
	})

	o.logger.Infow("stream scheduled", "name", name, "job_id", jobID, "fire_at", fireAt)
	return jobID, nil
}

func (o *Orchestrator) UpdateContent(ctx context.Context, broadcastID domain.BroadcastID, content domain.StreamContent) error {
	session, err := o.registry.Get(ctx, broadcastID)
	if err != nil {
		return err
	}

	sup := o.supervisionFor(broadcastID)
	sup.mu.Lock()
	session.Request.Content = content
	sup.mu.Unlock()

	o.logEvent(session, "content updated for next restart")
	return nil
}

func (o *Orchestrator) GetStatus(ctx context.Context, broadcastID domain.BroadcastID) (*domain.SessionStatusView, error) {
	session, err := o.registry.Get(ctx, broadcastID)
	if err != nil {
		return nil, err
	}

	health, err := o.gateway.GetStreamHealth(ctx, session.StreamID)
	if err != nil {
		return nil, fmt.Errorf("stream health: %w", err)
	}
	metrics, err := o.gateway.GetBroadcastMetrics(ctx, broadcastID)
	if err != nil {
		return nil, fmt.Errorf("broadcast metrics: %w", err)
	}

	// The session's monitor mutates these fields under the supervision
	// lock; read them under the same lock.
	sup := o.supervisionFor(broadcastID)
	sup.mu.Lock()
	view := &domain.SessionStatusView{
		Status:            session.Status,
		StartedAt:         session.StartedAt,
		ReconnectAttempts: session.ReconnectCount,
		Health:            health,
		Metrics:           metrics,
	}
	sup.mu.Unlock()

	view.EventTail = session.EventTail(10)
	return view, nil
}

func (o *Orchestrator) PostChatMessage(ctx context.Context, broadcastID domain.BroadcastID, message string) error {
	session, err := o.registry.Get(ctx, broadcastID)
	if err != nil || session.LiveChatID == "" {
		return nil
	}
	return o.gateway.PostChatMessage(ctx, session.LiveChatID, message)
}

func (o *Orchestrator) DisableChat(ctx context.Context, broadcastID domain.BroadcastID) error {
	if _, err := o.registry.Get(ctx, broadcastID); err != nil {
		return nil
	}
	return o.gateway.DisableChat(ctx, broadcastID)
}

func (o *Orchestrator) ListSessions(ctx context.Context) ([]*domain.StreamSession, error) {
	return o.registry.List(ctx)
}

// Close cancels every health monitor and waits for them to exit.
func (o *Orchestrator) Close() {
	o.stopAll()
	o.wg.Wait()
}

func (o *Orchestrator) applyDefaults(req *domain.StreamRequest) {
	if req.PrivacyStatus == "" {
		req.PrivacyStatus = o.cfg.DefaultPrivacyStatus
	}
	if req.Resolution == "" {
		req.Resolution = o.cfg.DefaultResolution
	}
	if req.Bitrate == "" {
		req.Bitrate = o.cfg.DefaultBitrate
	}
}

// superviseSession creates the per-session supervision record and
// starts the session's health monitor.
func (o *Orchestrator) superviseSession(session *domain.StreamSession) *supervision {
	monitorCtx, cancel := context.WithCancel(o.baseCtx)
	sup := &supervision{cancel: cancel}

	o.mu.Lock()
	o.supervised[session.BroadcastID] = sup
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.monitorSession(monitorCtx, session, sup)
	}()
	return sup
}

func (o *Orchestrator) supervisionFor(id domain.BroadcastID) *supervision {
	o.mu.Lock()
	defer o.mu.Unlock()

	sup, ok := o.supervised[id]
	if !ok {
		sup = &supervision{cancel: func() {}}
		o.supervised[id] = sup
	}
	return sup
}

// logEvent appends to the session's event log and fans the entry out to
// live subscribers.
func (o *Orchestrator) logEvent(session *domain.StreamSession, message string) {
	entry := session.AppendEvent(message)
	if o.events != nil {
		o.events.Publish(session.BroadcastID, entry)
	}
	o.logger.Debugw(message, "broadcast_id", session.BroadcastID)
}
