// Package alert posts operator notifications to an HMAC-signed instant
// messaging webhook.
package alert

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"astock-signal-trader-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Webhook is a client for a DingTalk-style robot webhook.
type Webhook struct {
	client      *resty.Client
	accessToken string
	secret      string
	logger      *zap.Logger
}

// NewWebhook creates a webhook client from the alert configuration.
func NewWebhook(cfg *config.Alert, logger *zap.Logger) *Webhook {
	return &Webhook{
		client:      resty.New().SetBaseURL(cfg.BaseURL),
		accessToken: cfg.AccessToken,
		secret:      cfg.Secret,
		logger:      logger.Named("alert"),
	}
}

// sign produces the webhook's timestamped HMAC-SHA256 signature. The value
// is raw base64; query encoding happens when the request is built.
func (w *Webhook) sign(timestamp string) string {
	h := hmac.New(sha256.New, []byte(w.secret))
	h.Write([]byte(timestamp + "\n" + w.secret))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Send posts a plain-text message to the webhook.
func (w *Webhook) Send(ctx context.Context, message string) error {
	timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParams(map[string]string{
			"access_token": w.accessToken,
			"timestamp":    timestamp,
			"sign":         w.sign(timestamp),
		}).
		SetBody(map[string]any{
			"msgtype": "text",
			"text":    map[string]string{"content": message},
		}).
		Post("/robot/send")
	if err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("alert request failed with status %s", resp.Status())
	}

	w.logger.Info("Alert sent", zap.Int("bytes", len(message)))
	return nil
}
