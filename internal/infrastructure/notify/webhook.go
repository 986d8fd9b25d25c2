package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"streamcast/internal/core/ports"
	"streamcast/pkg/retry"

	"go.uber.org/zap"
)

// WebhookNotifier delivers notifications as JSON POSTs. Delivery is
// retried with backoff; a final failure is logged and swallowed.
type WebhookNotifier struct {
	url      string
	client   *http.Client
	retryCfg retry.Config
	logger   *zap.SugaredLogger
}

func NewWebhookNotifier(url string, logger *zap.SugaredLogger) ports.Notifier {
	return &WebhookNotifier{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		retryCfg: retry.DefaultConfig(),
		logger:   logger,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, subject, message string) {
	payload, err := json.Marshal(map[string]string{
		"subject": subject,
		"message": message,
	})
	if err != nil {
		n.logger.Errorw("failed to encode webhook payload", "error", err)
		return
	}

	err = retry.Retry(ctx, n.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		n.logger.Errorw("failed to send webhook", "subject", subject, "error", err)
	}
}
