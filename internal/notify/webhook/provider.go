// Package webhook delivers notifications as JSON POSTs to a configured URL.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kiranshivaraju/loghunter/internal/config"
	"github.com/kiranshivaraju/loghunter/pkg/models"
)

// Provider implements notify.Provider over HTTP.
type Provider struct {
	cfg    config.NotifyConfig
	client *http.Client
}

func NewProvider(cfg config.NotifyConfig) *Provider {
	return &Provider{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

func (p *Provider) Name() string { return "webhook" }

func (p *Provider) Send(ctx context.Context, payload models.SendNotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
