// Package notify delivers SEND_NOTIFICATION jobs to a configured channel.
package notify

import (
	"context"

	"github.com/kiranshivaraju/loghunter/pkg/models"
)

// Provider delivers a single notification payload.
type Provider interface {
	Name() string
	Send(ctx context.Context, payload models.SendNotificationPayload) error
}
