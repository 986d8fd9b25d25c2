package services

import (
	"context"
	"testing"
	"time"

	"streamcast/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func streamingSession(name string) *domain.StreamSession {
	return &domain.StreamSession{
		Name:         name,
		BroadcastID:  "bc-1",
		StreamID:     "st-1",
		IngestionURL: "rtmp://ingest/key",
		Status:       domain.StatusStreaming,
		Process:      fakeProcess{pid: 42},
		Request: domain.StreamRequest{
			Resolution: "1080p",
			Bitrate:    "4500k",
			Content:    domain.StreamContent{Source: "/media/show.mp4"},
		},
	}
}

func TestPollOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy poll records the check and viewer count", func(t *testing.T) {
		f := newOrchestratorFixture(t, nil)
		session := streamingSession("demo")
		sup := &supervision{cancel: func() {}}

		viewers := int64(12)
		f.gateway.On("GetStreamHealth", mock.Anything, domain.StreamID("st-1")).
			Return(&domain.HealthSnapshot{Status: "active", Health: "good"}, nil)
		f.gateway.On("GetBroadcastMetrics", mock.Anything, domain.BroadcastID("bc-1")).
			Return(&domain.BroadcastMetrics{ConcurrentViewers: &viewers}, nil)

		f.orch.pollOnce(ctx, session, sup)

		assert.NotNil(t, session.LastHealthCheck)
		assert.Equal(t, domain.StatusStreaming, session.Status)
		assert.Equal(t, 0, session.ReconnectCount)
		f.runner.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything)
	})

	t.Run("gateway failure is logged, not raised", func(t *testing.T) {
		f := newOrchestratorFixture(t, nil)
		session := streamingSession("demo")
		sup := &supervision{cancel: func() {}}

		f.gateway.On("GetStreamHealth", mock.Anything, mock.Anything).Return(nil, assert.AnError)

		f.orch.pollOnce(ctx, session, sup)

		assert.Nil(t, session.LastHealthCheck)
		assert.Equal(t, domain.StatusStreaming, session.Status)
		tail := session.EventTail(1)
		assert.Contains(t, tail[0].Message, "health check failed")
	})

	t.Run("degraded health relaunches the encoder", func(t *testing.T) {
		f := newOrchestratorFixture(t, nil)
		session := streamingSession("demo")
		sup := &supervision{cancel: func() {}}

		f.gateway.On("GetStreamHealth", mock.Anything, mock.Anything).
			Return(&domain.HealthSnapshot{Status: "inactive", Health: "noData"}, nil)
		f.gateway.On("GetBroadcastMetrics", mock.Anything, mock.Anything).
			Return(&domain.BroadcastMetrics{}, nil)
		f.gateway.On("Transition", mock.Anything, domain.BroadcastID("bc-1"), "live").Return(nil)
		f.runner.On("Terminate", fakeProcess{pid: 42}).Return(nil)
		f.runner.On("Launch", mock.Anything, mock.Anything).Return(fakeProcess{pid: 43}, nil)
		f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return()

		f.orch.pollOnce(ctx, session, sup)

		assert.Equal(t, 1, session.ReconnectCount)
		assert.Equal(t, domain.StatusStreaming, session.Status)
		assert.Equal(t, 43, session.Process.ID())
		f.runner.AssertCalled(t, "Terminate", fakeProcess{pid: 42})
		f.notifier.AssertCalled(t, "Notify", mock.Anything, "Reconnecting stream demo", mock.Anything)
	})

	t.Run("error health relaunches even when the status is active", func(t *testing.T) {
		f := newOrchestratorFixture(t, nil)
		session := streamingSession("demo")
		sup := &supervision{cancel: func() {}}

		f.gateway.On("GetStreamHealth", mock.Anything, mock.Anything).
			Return(&domain.HealthSnapshot{Status: "active", Health: "error"}, nil)
		f.gateway.On("GetBroadcastMetrics", mock.Anything, mock.Anything).
			Return(&domain.BroadcastMetrics{}, nil)
		f.gateway.On("Transition", mock.Anything, mock.Anything, "live").Return(nil)
		f.runner.On("Terminate", mock.Anything).Return(nil)
		f.runner.On("Launch", mock.Anything, mock.Anything).Return(fakeProcess{pid: 44}, nil)
		f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return()

		f.orch.pollOnce(ctx, session, sup)

		assert.Equal(t, 1, session.ReconnectCount)
	})
}

func TestReconnect(t *testing.T) {
	t.Run("relaunch failure leaves the session reconnecting", func(t *testing.T) {
		f := newOrchestratorFixture(t, nil)
		session := streamingSession("demo")
		sup := &supervision{cancel: func() {}}

		f.runner.On("Terminate", mock.Anything).Return(nil)
		f.runner.On("Launch", mock.Anything, mock.Anything).Return(nil, assert.AnError)
		f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return()

		f.orch.reconnect(context.Background(), session, sup)

		assert.Equal(t, domain.StatusReconnecting, session.Status)
		assert.Equal(t, 1, session.ReconnectCount)
		tail := session.EventTail(1)
		assert.Contains(t, tail[0].Message, "relaunch failed")
	})

	t.Run("exhausted budget fails the session and stops supervision", func(t *testing.T) {
		f := newOrchestratorFixture(t, func(cfg *Config) {
			cfg.MaxReconnectAttempts = 2
		})
		session := streamingSession("demo")
		session.ReconnectCount = 2
		session.Status = domain.StatusReconnecting

		cancelled := false
		sup := &supervision{cancel: func() { cancelled = true }}

		f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return()

		f.orch.reconnect(context.Background(), session, sup)

		assert.Equal(t, domain.StatusFailed, session.Status)
		assert.True(t, cancelled)
		// The count reflects attempts actually made, not the give-up.
		assert.Equal(t, 2, session.ReconnectCount)
		f.notifier.AssertCalled(t, "Notify", mock.Anything, "Stream demo failed", mock.Anything)
		f.runner.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything)

		tail := session.EventTail(1)
		assert.Contains(t, tail[0].Message, "after 2 attempts")
	})

	t.Run("a cancelled monitor context abandons the reconnect", func(t *testing.T) {
		f := newOrchestratorFixture(t, nil)
		session := streamingSession("demo")
		sup := &supervision{cancel: func() {}}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		f.orch.reconnect(ctx, session, sup)

		assert.Equal(t, domain.StatusStreaming, session.Status)
		assert.Equal(t, 0, session.ReconnectCount)
		f.runner.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything)
	})

	t.Run("a stopped session abandons the reconnect", func(t *testing.T) {
		f := newOrchestratorFixture(t, nil)
		session := streamingSession("demo")
		session.Status = domain.StatusStopped
		sup := &supervision{cancel: func() {}}

		f.orch.reconnect(context.Background(), session, sup)

		assert.Equal(t, 0, session.ReconnectCount)
	})
}

// Exercises status reads racing the monitor's reconnect mutations;
// meaningful under the race detector.
func TestGetStatus_ConcurrentWithReconnect(t *testing.T) {
	f := newOrchestratorFixture(t, func(cfg *Config) {
		cfg.MaxReconnectAttempts = 0
	})
	session := streamingSession("demo")
	assert.NoError(t, f.registry.Register(context.Background(), session))
	sup := f.orch.supervisionFor("bc-1")

	f.gateway.On("GetStreamHealth", mock.Anything, mock.Anything).
		Return(&domain.HealthSnapshot{Status: "active", Health: "good"}, nil)
	f.gateway.On("GetBroadcastMetrics", mock.Anything, mock.Anything).
		Return(&domain.BroadcastMetrics{}, nil)
	f.gateway.On("Transition", mock.Anything, mock.Anything, "live").Return(nil)
	f.runner.On("Terminate", mock.Anything).Return(nil)
	f.runner.On("Launch", mock.Anything, mock.Anything).Return(fakeProcess{pid: 50}, nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			f.orch.reconnect(context.Background(), session, sup)
		}
	}()

	for i := 0; i < 25; i++ {
		view, err := f.orch.GetStatus(context.Background(), "bc-1")
		assert.NoError(t, err)
		assert.NotNil(t, view)
	}
	<-done
}

func TestReconnectDelay(t *testing.T) {
	f := newOrchestratorFixture(t, func(cfg *Config) {
		cfg.ReconnectBackoff = 2 * time.Second
		cfg.ReconnectBackoffMax = 10 * time.Second
	})

	assert.Equal(t, 2*time.Second, f.orch.reconnectDelay(1))
	assert.Equal(t, 4*time.Second, f.orch.reconnectDelay(2))
	assert.Equal(t, 8*time.Second, f.orch.reconnectDelay(3))
	assert.Equal(t, 10*time.Second, f.orch.reconnectDelay(4))
	assert.Equal(t, 10*time.Second, f.orch.reconnectDelay(9))

	zero := newOrchestratorFixture(t, nil)
	assert.Equal(t, time.Duration(0), zero.orch.reconnectDelay(5))
}
