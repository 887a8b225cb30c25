package mock

import (
	"context"

	"github.com/kiranshivaraju/loghunter/pkg/models"
)

// Provider is a notify.Provider test double.
type Provider struct {
	Name_   string
	SendFunc func(ctx context.Context, payload models.SendNotificationPayload) error
	Sent     []models.SendNotificationPayload
}

func (m *Provider) Name() string { return m.Name_ }

func (m *Provider) Send(ctx context.Context, payload models.SendNotificationPayload) error {
	m.Sent = append(m.Sent, payload)
	if m.SendFunc != nil {
		return m.SendFunc(ctx, payload)
	}
	return nil
}

// NewProvider returns a Provider with no-op defaults.
func NewProvider() *Provider {
	return &Provider{Name_: "mock"}
}

// NewFailingProvider returns a Provider whose Send always fails with err.
func NewFailingProvider(err error) *Provider {
	return &Provider{
		Name_: "mock-failing",
		SendFunc: func(_ context.Context, _ models.SendNotificationPayload) error {
			return err
		},
	}
}
