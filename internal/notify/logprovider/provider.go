// Package logprovider is the default notification provider: it writes the
// notification to the structured logger and delivers nothing externally.
package logprovider

import (
	"context"
	"log/slog"

	"github.com/kiranshivaraju/loghunter/pkg/models"
)

// Provider implements notify.Provider by logging the notification.
type Provider struct{}

func NewProvider() *Provider { return &Provider{} }

func (p *Provider) Name() string { return "log" }

func (p *Provider) Send(_ context.Context, payload models.SendNotificationPayload) error {
	slog.Info("notification delivered",
		"provider", p.Name(),
		"user_id", payload.UserID,
		"kind", payload.Kind,
		"message", payload.Message,
	)
	return nil
}
