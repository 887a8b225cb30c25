package notify

import (
	"fmt"

	"github.com/kiranshivaraju/loghunter/internal/config"
	"github.com/kiranshivaraju/loghunter/internal/notify/logprovider"
	"github.com/kiranshivaraju/loghunter/internal/notify/webhook"
)

// NewProvider constructs the configured notification provider.
// Called once at server startup.
func NewProvider(cfg config.NotifyConfig) (Provider, error) {
	switch cfg.Provider {
	case "log":
		return logprovider.NewProvider(), nil
	case "webhook":
		return webhook.NewProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown notify provider %q: must be one of log, webhook", cfg.Provider)
	}
}
