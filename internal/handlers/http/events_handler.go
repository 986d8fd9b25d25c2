package http

import (
	"errors"
	"net/http"
	"time"

	"streamcast/internal/core/domain"
	"streamcast/internal/core/ports"
	"streamcast/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const (
	eventWriteTimeout = 10 * time.Second
	eventPingInterval = 30 * time.Second
)

// EventsHandler streams a session's event-log entries to websocket
// subscribers as they are appended.
type EventsHandler struct {
	registry ports.SessionRegistry
	hub      *services.EventHub
	logger   *zap.SugaredLogger
}

func NewEventsHandler(registry ports.SessionRegistry, hub *services.EventHub, logger *zap.SugaredLogger) *EventsHandler {
	return &EventsHandler{registry: registry, hub: hub, logger: logger}
}

func (h *EventsHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/api/v1/streams/:id/events", h.StreamEvents)
}

func (h *EventsHandler) StreamEvents(c *gin.Context) {
	broadcastID := domain.BroadcastID(c.Param("id"))

	session, err := h.registry.Get(c.Request.Context(), broadcastID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorw("websocket upgrade failed", "broadcast_id", broadcastID, "error", err)
		return
	}
	defer conn.Close()

	entries, cancel := h.hub.Subscribe(broadcastID)
	defer cancel()

	// Replay the recent tail so a new subscriber has context.
	for _, entry := range session.EventTail(10) {
		if err := h.writeEntry(conn, entry); err != nil {
			return
		}
	}

	// Reader goroutine: its only job is to notice the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case entry := <-entries:
			if err := h.writeEntry(conn, entry); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *EventsHandler) writeEntry(conn *websocket.Conn, entry domain.EventLogEntry) error {
	conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
	if err := conn.WriteJSON(entry); err != nil {
		h.logger.Debugw("websocket write failed", "error", err)
		return err
	}
	return nil
}
