package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"streamcast/internal/core/domain"
	"streamcast/internal/core/ports"

	"go.uber.org/zap"
)

const defaultAPIBaseURL = "https://www.googleapis.com/youtube/v3"

// Client is the platform gateway bound to the YouTube Live Streaming
// API. Every failed call surfaces as *domain.PlatformError.
type Client struct {
	base   string
	http   *http.Client
	tokens *tokenSource
	logger *zap.SugaredLogger
}

// Config configures the platform gateway.
type Config struct {
	APIBaseURL string      `yaml:"api_base_url"`
	OAuth      OAuthConfig `yaml:"oauth"`
}

func NewClient(cfg Config, logger *zap.SugaredLogger) ports.PlatformGateway {
	base := cfg.APIBaseURL
	if base == "" {
		base = defaultAPIBaseURL
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		http:   httpClient,
		tokens: newTokenSource(cfg.OAuth, httpClient),
		logger: logger,
	}
}

func (c *Client) CreateBroadcast(ctx context.Context, title, description, privacy string, scheduledStart *time.Time) (domain.BroadcastID, error) {
	body := map[string]any{
		"snippet": map[string]any{
			"title":       title,
			"description": description,
		},
		"status": map[string]any{
			"privacyStatus": privacy,
		},
	}
	if scheduledStart != nil {
		body["snippet"].(map[string]any)["scheduledStartTime"] = scheduledStart.UTC().Format(time.RFC3339)
	}

	var resp struct {
		ID string `json:"id"`
	}
	q := url.Values{"part": {"snippet,status,contentDetails"}}
	if err := c.do(ctx, http.MethodPost, "/liveBroadcasts", q, body, &resp); err != nil {
		return "", &domain.PlatformError{Op: "create broadcast", Err: err}
	}
	c.logger.Infow("created broadcast", "broadcast_id", resp.ID)
	return domain.BroadcastID(resp.ID), nil
}

func (c *Client) CreateStream(ctx context.Context, name, resolution, bitrate string) (*domain.IngestionInfo, error) {
	frameRate := "30fps"
	if strings.HasSuffix(resolution, "p60") {
		frameRate = "60fps"
	}
	body := map[string]any{
		"snippet": map[string]any{"title": name},
		"cdn": map[string]any{
			"frameRate":     frameRate,
			"ingestionType": "rtmp",
			"resolution":    strings.Replace(resolution, "p60", "p", 1),
			"bitrate":       bitrate,
		},
	}

	var resp struct {
		ID  string `json:"id"`
		CDN struct {
			IngestionInfo struct {
				IngestionAddress string `json:"ingestionAddress"`
				StreamName       string `json:"streamName"`
			} `json:"ingestionInfo"`
		} `json:"cdn"`
	}
	q := url.Values{"part": {"snippet,cdn,contentDetails,status"}}
	if err := c.do(ctx, http.MethodPost, "/liveStreams", q, body, &resp); err != nil {
		return nil, &domain.PlatformError{Op: "create stream", Err: err}
	}
	c.logger.Infow("created stream", "stream_id", resp.ID)
	return &domain.IngestionInfo{
		StreamID:         domain.StreamID(resp.ID),
		IngestionAddress: resp.CDN.IngestionInfo.IngestionAddress,
		StreamName:       resp.CDN.IngestionInfo.StreamName,
	}, nil
}

func (c *Client) Bind(ctx context.Context, broadcastID domain.BroadcastID, streamID domain.StreamID) error {
	q := url.Values{
		"part":     {"id,contentDetails"},
		"id":       {string(broadcastID)},
		"streamId": {string(streamID)},
	}
	if err := c.do(ctx, http.MethodPost, "/liveBroadcasts/bind", q, nil, nil); err != nil {
		return &domain.PlatformError{Op: "bind", Err: err}
	}
	c.logger.Infow("bound broadcast to stream", "broadcast_id", broadcastID, "stream_id", streamID)
	return nil
}

func (c *Client) Transition(ctx context.Context, broadcastID domain.BroadcastID, target string) error {
	q := url.Values{
		"part":            {"status"},
		"id":              {string(broadcastID)},
		"broadcastStatus": {target},
	}
	if err := c.do(ctx, http.MethodPost, "/liveBroadcasts/transition", q, nil, nil); err != nil {
		return &domain.PlatformError{Op: "transition", Err: err}
	}
	c.logger.Infow("transitioned broadcast", "broadcast_id", broadcastID, "status", target)
	return nil
}

func (c *Client) GetStreamHealth(ctx context.Context, streamID domain.StreamID) (*domain.HealthSnapshot, error) {
	var resp struct {
		Items []struct {
			Status struct {
				StreamStatus string `json:"streamStatus"`
				HealthStatus struct {
					Status              string `json:"status"`
					ConfigurationIssues []struct {
						Description string `json:"description"`
					} `json:"configurationIssues"`
				} `json:"healthStatus"`
			} `json:"status"`
		} `json:"items"`
	}
	q := url.Values{"part": {"status"}, "id": {string(streamID)}}
	if err := c.do(ctx, http.MethodGet, "/liveStreams", q, nil, &resp); err != nil {
		return nil, &domain.PlatformError{Op: "stream health", Err: err}
	}
	if len(resp.Items) == 0 {
		return nil, &domain.PlatformError{Op: "stream health", Err: fmt.Errorf("stream %s not found", streamID)}
	}

	status := resp.Items[0].Status
	snapshot := &domain.HealthSnapshot{
		Status: valueOr(status.StreamStatus, "unknown"),
		Health: valueOr(status.HealthStatus.Status, "unknown"),
	}
	for _, issue := range status.HealthStatus.ConfigurationIssues {
		snapshot.ConfigurationIssues = append(snapshot.ConfigurationIssues, issue.Description)
	}
	return snapshot, nil
}

func (c *Client) GetBroadcastMetrics(ctx context.Context, broadcastID domain.BroadcastID) (*domain.BroadcastMetrics, error) {
	var resp struct {
		Items []struct {
			Statistics struct {
				// The API reports the viewer count as a decimal string.
				ConcurrentViewers string `json:"concurrentViewers"`
			} `json:"statistics"`
			Status struct {
				LifeCycleStatus string `json:"lifeCycleStatus"`
			} `json:"status"`
		} `json:"items"`
	}
	q := url.Values{"part": {"statistics,status,contentDetails"}, "id": {string(broadcastID)}}
	if err := c.do(ctx, http.MethodGet, "/liveBroadcasts", q, nil, &resp); err != nil {
		return nil, &domain.PlatformError{Op: "broadcast metrics", Err: err}
	}
	if len(resp.Items) == 0 {
		return nil, &domain.PlatformError{Op: "broadcast metrics", Err: fmt.Errorf("broadcast %s not found", broadcastID)}
	}

	metrics := &domain.BroadcastMetrics{LifecycleStatus: resp.Items[0].Status.LifeCycleStatus}
	if raw := resp.Items[0].Statistics.ConcurrentViewers; raw != "" {
		if viewers, err := strconv.ParseInt(raw, 10, 64); err == nil {
			metrics.ConcurrentViewers = &viewers
		}
	}
	return metrics, nil
}

func (c *Client) GetLiveChatID(ctx context.Context, broadcastID domain.BroadcastID) (domain.ChatID, error) {
	var resp struct {
		Items []struct {
			Snippet struct {
				LiveChatID string `json:"liveChatId"`
			} `json:"snippet"`
		} `json:"items"`
	}
	q := url.Values{"part": {"snippet"}, "id": {string(broadcastID)}}
	if err := c.do(ctx, http.MethodGet, "/liveBroadcasts", q, nil, &resp); err != nil {
		return "", &domain.PlatformError{Op: "live chat id", Err: err}
	}
	if len(resp.Items) == 0 {
		return "", nil
	}
	return domain.ChatID(resp.Items[0].Snippet.LiveChatID), nil
}

func (c *Client) PostChatMessage(ctx context.Context, chatID domain.ChatID, text string) error {
	body := map[string]any{
		"snippet": map[string]any{
			"liveChatId": string(chatID),
			"type":       "textMessageEvent",
			"textMessageDetails": map[string]any{
				"messageText": text,
			},
		},
	}
	q := url.Values{"part": {"snippet"}}
	if err := c.do(ctx, http.MethodPost, "/liveChatMessages", q, body, nil); err != nil {
		return &domain.PlatformError{Op: "post chat message", Err: err}
	}
	return nil
}

func (c *Client) DisableChat(ctx context.Context, broadcastID domain.BroadcastID) error {
	body := map[string]any{
		"id":      string(broadcastID),
		"snippet": map[string]any{"liveChatId": nil},
		"contentDetails": map[string]any{
			"monitorStream": map[string]any{"enableMonitorStream": false},
		},
	}
	q := url.Values{"part": {"snippet,contentDetails"}}
	if err := c.do(ctx, http.MethodPut, "/liveBroadcasts", q, body, nil); err != nil {
		return &domain.PlatformError{Op: "disable chat", Err: err}
	}
	return nil
}

// do issues one authenticated API call and decodes the JSON response
// into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
