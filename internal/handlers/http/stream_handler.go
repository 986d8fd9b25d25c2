package http

import (
	"errors"
	"net/http"
	"time"

	"streamcast/internal/core/domain"
	"streamcast/internal/core/ports"

	"github.com/gin-gonic/gin"
)

type StreamHandler struct {
	orchestrator ports.StreamOrchestrator
}

func NewStreamHandler(orchestrator ports.StreamOrchestrator) *StreamHandler {
	return &StreamHandler{orchestrator: orchestrator}
}

func (h *StreamHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/streams/start", h.StartStream)
		api.POST("/streams/stop", h.StopStream)
		api.POST("/streams/schedule", h.ScheduleStream)
		api.POST("/streams/chat", h.PostChatMessage)
		api.POST("/streams/disable-chat", h.DisableChat)
		api.PUT("/streams/:id/content", h.UpdateContent)
		api.GET("/streams/:id", h.GetStatus)
		api.GET("/streams", h.ListStreams)
	}
}

type contentPayload struct {
	Source   string   `json:"source" binding:"required"`
	Loop     bool     `json:"loop"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

func (p contentPayload) toDomain() domain.StreamContent {
	return domain.StreamContent{
		Source:   p.Source,
		Loop:     p.Loop,
		Tags:     p.Tags,
		Category: p.Category,
	}
}

type startStreamPayload struct {
	Name               string         `json:"name" binding:"required"`
	Title              string         `json:"title" binding:"required"`
	Description        string         `json:"description"`
	PrivacyStatus      string         `json:"privacy_status"`
	Resolution         string         `json:"resolution"`
	Bitrate            string         `json:"bitrate"`
	Content            contentPayload `json:"content" binding:"required"`
	ScheduledStartTime *time.Time     `json:"scheduled_start_time"`
	ExtraDestinations  []string       `json:"extra_destinations"`
}

func (p startStreamPayload) toRequest() domain.StreamRequest {
	return domain.StreamRequest{
		Title:              p.Title,
		Description:        p.Description,
		PrivacyStatus:      p.PrivacyStatus,
		Resolution:         p.Resolution,
		Bitrate:            p.Bitrate,
		Content:            p.Content.toDomain(),
		ScheduledStartTime: p.ScheduledStartTime,
		ExtraDestinations:  p.ExtraDestinations,
	}
}

func (h *StreamHandler) StartStream(c *gin.Context) {
	var payload startStreamPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.orchestrator.StartStream(c.Request.Context(), payload.Name, payload.toRequest())
	if err != nil {
		status, message := mapError(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"broadcast_id":  session.BroadcastID,
		"ingestion_url": session.IngestionURL,
	})
}

func (h *StreamHandler) StopStream(c *gin.Context) {
	var req struct {
		BroadcastID domain.BroadcastID `json:"broadcast_id" binding:"required"`
		Reason      string             `json:"reason"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "manual stop"
	}

	if err := h.orchestrator.StopStream(c.Request.Context(), req.BroadcastID, reason); err != nil {
		status, message := mapError(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (h *StreamHandler) ScheduleStream(c *gin.Context) {
	var payload startStreamPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID, err := h.orchestrator.ScheduleStream(c.Request.Context(), payload.Name, payload.toRequest())
	if err != nil {
		status, message := mapError(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job_id": jobID})
}

func (h *StreamHandler) PostChatMessage(c *gin.Context) {
	var req struct {
		BroadcastID domain.BroadcastID `json:"broadcast_id" binding:"required"`
		Message     string             `json:"message" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orchestrator.PostChatMessage(c.Request.Context(), req.BroadcastID, req.Message); err != nil {
		status, message := mapError(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sent": true})
}

func (h *StreamHandler) DisableChat(c *gin.Context) {
	var req struct {
		BroadcastID domain.BroadcastID `json:"broadcast_id" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orchestrator.DisableChat(c.Request.Context(), req.BroadcastID); err != nil {
		status, message := mapError(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat": "disabled"})
}

func (h *StreamHandler) UpdateContent(c *gin.Context) {
	broadcastID := domain.BroadcastID(c.Param("id"))

	var payload contentPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orchestrator.UpdateContent(c.Request.Context(), broadcastID, payload.toDomain()); err != nil {
		status, message := mapError(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *StreamHandler) GetStatus(c *gin.Context) {
	broadcastID := domain.BroadcastID(c.Param("id"))

	view, err := h.orchestrator.GetStatus(c.Request.Context(), broadcastID)
	if err != nil {
		status, message := mapError(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *StreamHandler) ListStreams(c *gin.Context) {
	sessions, err := h.orchestrator.ListSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ids := make([]domain.BroadcastID, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.BroadcastID)
	}

	c.JSON(http.StatusOK, gin.H{"broadcast_ids": ids})
}

// mapError translates core errors into HTTP responses.
func mapError(err error) (int, string) {
	var platformErr *domain.PlatformError
	var launchErr *domain.ProcessLaunchError

	switch {
	case errors.Is(err, domain.ErrUnknownSession):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, domain.ErrScheduleTimeRequired):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &platformErr):
		return http.StatusBadGateway, err.Error()
	case errors.As(err, &launchErr):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
