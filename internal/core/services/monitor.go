package services

import (
	"context"
	"fmt"
	"time"

	"streamcast/internal/core/domain"
)

// monitorSession is the per-session supervisory loop. It polls stream
// health on a fixed interval and drives the reconnect path until the
// session leaves active supervision or its context is cancelled.
func (o *Orchestrator) monitorSession(ctx context.Context, session *domain.StreamSession, sup *supervision) {
	ticker := time.NewTicker(o.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sup.mu.Lock()
		active := session.Status.Active()
		sup.mu.Unlock()
		if !active {
			return
		}

		o.pollOnce(ctx, session, sup)
	}
}

// pollOnce performs one health-check iteration. Gateway failures are
// logged as session events, never raised; a degraded poll triggers the
// reconnect path. Each remote call gets a deadline equal to the monitor
// interval so a hung call cannot stall the loop indefinitely.
func (o *Orchestrator) pollOnce(ctx context.Context, session *domain.StreamSession, sup *supervision) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.MonitorInterval)
	defer cancel()

	health, err := o.gateway.GetStreamHealth(callCtx, session.StreamID)
	if err != nil {
		o.logEvent(session, fmt.Sprintf("health check failed: %v", err))
		return
	}

	now := time.Now().UTC()
	sup.mu.Lock()
	session.LastHealthCheck = &now
	sup.mu.Unlock()

	o.logEvent(session, fmt.Sprintf("health: status=%s health=%s", health.Status, health.Health))

	if health.Status != "active" || health.Health == "error" {
		o.reconnect(ctx, session, sup)
	}

	metrics, err := o.gateway.GetBroadcastMetrics(callCtx, session.BroadcastID)
	if err != nil {
		o.logEvent(session, fmt.Sprintf("metrics poll failed: %v", err))
		return
	}
	if metrics.ConcurrentViewers != nil {
		// Viewer counts are logged but never drive state transitions.
		o.logEvent(session, fmt.Sprintf("viewers: %d", *metrics.ConcurrentViewers))
		if o.metrics != nil {
			o.metrics.ViewerCount(string(session.BroadcastID), float64(*metrics.ConcurrentViewers))
		}
	}
}

// reconnect relaunches the encoder after a degraded health check. A
// concurrent StopStream wins: it cancels ctx before taking the lock, so
// the reconnect observes either the cancellation or the terminal status
// and abandons.
func (o *Orchestrator) reconnect(ctx context.Context, session *domain.StreamSession, sup *supervision) {
	sup.mu.Lock()
	defer sup.mu.Unlock()

	if ctx.Err() != nil || !session.Status.Active() {
		return
	}

	attempt := session.ReconnectCount + 1

	if o.cfg.MaxReconnectAttempts > 0 && attempt > o.cfg.MaxReconnectAttempts {
		session.Status = domain.StatusFailed
		o.logEvent(session, fmt.Sprintf("reconnect budget exhausted after %d attempts", session.ReconnectCount))
		o.notifier.Notify(ctx, fmt.Sprintf("Stream %s failed", session.Name),
			fmt.Sprintf("Broadcast %s gave up after %d reconnect attempts.", session.BroadcastID, session.ReconnectCount))
		if o.metrics != nil {
			o.metrics.SessionEnded()
		}
		sup.cancel()
		return
	}
	session.ReconnectCount = attempt

	o.logEvent(session, fmt.Sprintf("attempting reconnection %d", attempt))
	o.notifier.Notify(ctx, fmt.Sprintf("Reconnecting stream %s", session.Name),
		fmt.Sprintf("Health degraded for broadcast %s, attempt %d.", session.BroadcastID, attempt))
	session.Status = domain.StatusReconnecting

	if o.metrics != nil {
		o.metrics.ReconnectAttempted(string(session.BroadcastID))
	}

	// The supervision lock is held across the wait; a concurrent stop
	// surfaces as ctx cancellation.
	if delay := o.reconnectDelay(attempt); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	// The previous encoder handle is superseded; terminate it before
	// relaunching so at most one encoder runs per session.
	if session.Process != nil {
		if err := o.runner.Terminate(session.Process); err != nil {
			o.logger.Warnw("failed to terminate stale encoder", "broadcast_id", session.BroadcastID, "error", err)
		}
		session.Process = nil
	}

	if err := o.launch(ctx, session); err != nil {
		// Still Reconnecting; the next monitor tick retries.
		o.logEvent(session, fmt.Sprintf("relaunch failed: %v", err))
	}
}

func (o *Orchestrator) reconnectDelay(attempt int) time.Duration {
	if o.cfg.ReconnectBackoff <= 0 {
		return 0
	}
	delay := o.cfg.ReconnectBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if o.cfg.ReconnectBackoffMax > 0 && delay >= o.cfg.ReconnectBackoffMax {
			return o.cfg.ReconnectBackoffMax
		}
	}
	return delay
}
