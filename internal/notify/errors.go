package notify

import "errors"

var (
	ErrProviderUnavailable = errors.New("notify: provider unavailable")
	ErrDeliveryTimeout     = errors.New("notify: delivery timeout")
)
