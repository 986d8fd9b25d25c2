package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"streamcast/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) StartStream(ctx context.Context, name string, req domain.StreamRequest) (*domain.StreamSession, error) {
	args := m.Called(ctx, name, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StreamSession), args.Error(1)
}

func (m *MockOrchestrator) StopStream(ctx context.Context, broadcastID domain.BroadcastID, reason string) error {
	args := m.Called(ctx, broadcastID, reason)
	return args.Error(0)
}

func (m *MockOrchestrator) ScheduleStream(ctx context.Context, name string, req domain.StreamRequest) (string, error) {
	args := m.Called(ctx, name, req)
	return args.String(0), args.Error(1)
}

func (m *MockOrchestrator) UpdateContent(ctx context.Context, broadcastID domain.BroadcastID, content domain.StreamContent) error {
	args := m.Called(ctx, broadcastID, content)
	return args.Error(0)
}

func (m *MockOrchestrator) GetStatus(ctx context.Context, broadcastID domain.BroadcastID) (*domain.SessionStatusView, error) {
	args := m.Called(ctx, broadcastID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionStatusView), args.Error(1)
}

func (m *MockOrchestrator) PostChatMessage(ctx context.Context, broadcastID domain.BroadcastID, message string) error {
	args := m.Called(ctx, broadcastID, message)
	return args.Error(0)
}

func (m *MockOrchestrator) DisableChat(ctx context.Context, broadcastID domain.BroadcastID) error {
	args := m.Called(ctx, broadcastID)
	return args.Error(0)
}

func (m *MockOrchestrator) ListSessions(ctx context.Context) ([]*domain.StreamSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.StreamSession), args.Error(1)
}

func setupRouter(orch *MockOrchestrator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewStreamHandler(orch).SetupRoutes(router)
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStreamHandler_StartStream(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		orch := new(MockOrchestrator)
		router := setupRouter(orch)

		orch.On("StartStream", mock.Anything, "demo", mock.AnythingOfType("domain.StreamRequest")).
			Return(&domain.StreamSession{
				BroadcastID:  "bc-1",
				IngestionURL: "rtmp://ingest/key",
			}, nil)

		w := doJSON(router, http.MethodPost, "/api/v1/streams/start", gin.H{
			"name":    "demo",
			"title":   "Demo Show",
			"content": gin.H{"source": "/media/show.mp4"},
		})

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp map[string]string
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "bc-1", resp["broadcast_id"])
		assert.Equal(t, "rtmp://ingest/key", resp["ingestion_url"])
	})

	t.Run("missing required fields", func(t *testing.T) {
		orch := new(MockOrchestrator)
		router := setupRouter(orch)

		w := doJSON(router, http.MethodPost, "/api/v1/streams/start", gin.H{"name": "demo"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		orch.AssertNotCalled(t, "StartStream", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("platform failure maps to bad gateway", func(t *testing.T) {
		orch := new(MockOrchestrator)
		router := setupRouter(orch)

		orch.On("StartStream", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &domain.PlatformError{Op: "create broadcast", Err: assert.AnError})

		w := doJSON(router, http.MethodPost, "/api/v1/streams/start", gin.H{
			"name":    "demo",
			"title":   "Demo Show",
			"content": gin.H{"source": "/media/show.mp4"},
		})

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestStreamHandler_StopStream(t *testing.T) {
	orch := new(MockOrchestrator)
	router := setupRouter(orch)

	orch.On("StopStream", mock.Anything, domain.BroadcastID("bc-1"), "manual stop").Return(nil)

	w := doJSON(router, http.MethodPost, "/api/v1/streams/stop", gin.H{"broadcast_id": "bc-1"})

	assert.Equal(t, http.StatusOK, w.Code)
	orch.AssertExpectations(t)
}

func TestStreamHandler_ScheduleStream(t *testing.T) {
	t.Run("returns the job id", func(t *testing.T) {
		orch := new(MockOrchestrator)
		router := setupRouter(orch)

		orch.On("ScheduleStream", mock.Anything, "demo", mock.Anything).Return("demo-2026-09-01T18:00:00Z", nil)

		fireAt := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
		w := doJSON(router, http.MethodPost, "/api/v1/streams/schedule", gin.H{
			"name":                 "demo",
			"title":                "Demo Show",
			"content":              gin.H{"source": "/media/show.mp4"},
			"scheduled_start_time": fireAt,
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "demo-2026-09-01T18:00:00Z")
	})

	t.Run("missing fire time", func(t *testing.T) {
		orch := new(MockOrchestrator)
		router := setupRouter(orch)

		orch.On("ScheduleStream", mock.Anything, "demo", mock.Anything).
			Return("", domain.ErrScheduleTimeRequired)

		w := doJSON(router, http.MethodPost, "/api/v1/streams/schedule", gin.H{
			"name":    "demo",
			"title":   "Demo Show",
			"content": gin.H{"source": "/media/show.mp4"},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStreamHandler_UpdateContent(t *testing.T) {
	orch := new(MockOrchestrator)
	router := setupRouter(orch)

	orch.On("UpdateContent", mock.Anything, domain.BroadcastID("bc-1"),
		domain.StreamContent{Source: "/media/new.mp4", Loop: true}).Return(nil)

	w := doJSON(router, http.MethodPut, "/api/v1/streams/bc-1/content", gin.H{
		"source": "/media/new.mp4",
		"loop":   true,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	orch.AssertExpectations(t)
}

func TestStreamHandler_GetStatus(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		orch := new(MockOrchestrator)
		router := setupRouter(orch)

		orch.On("GetStatus", mock.Anything, domain.BroadcastID("bc-1")).
			Return(&domain.SessionStatusView{
				Status: domain.StatusStreaming,
				Health: &domain.HealthSnapshot{Status: "active", Health: "good"},
			}, nil)

		w := doJSON(router, http.MethodGet, "/api/v1/streams/bc-1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "streaming")
	})

	t.Run("unknown session", func(t *testing.T) {
		orch := new(MockOrchestrator)
		router := setupRouter(orch)

		orch.On("GetStatus", mock.Anything, domain.BroadcastID("missing")).
			Return(nil, domain.ErrUnknownSession)

		w := doJSON(router, http.MethodGet, "/api/v1/streams/missing", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "session not found")
	})
}

func TestStreamHandler_ListStreams(t *testing.T) {
	orch := new(MockOrchestrator)
	router := setupRouter(orch)

	orch.On("ListSessions", mock.Anything).Return([]*domain.StreamSession{
		{BroadcastID: "bc-1"},
		{BroadcastID: "bc-2"},
	}, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/streams", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bc-1")
	assert.Contains(t, w.Body.String(), "bc-2")
}

func TestStreamHandler_Chat(t *testing.T) {
	orch := new(MockOrchestrator)
	router := setupRouter(orch)

	orch.On("PostChatMessage", mock.Anything, domain.BroadcastID("bc-1"), "hello").Return(nil)
	orch.On("DisableChat", mock.Anything, domain.BroadcastID("bc-1")).Return(nil)

	w := doJSON(router, http.MethodPost, "/api/v1/streams/chat", gin.H{
		"broadcast_id": "bc-1",
		"message":      "hello",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/streams/disable-chat", gin.H{
		"broadcast_id": "bc-1",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	orch.AssertExpectations(t)
}
