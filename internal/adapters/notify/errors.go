package notify

import "errors"

// Sentinel errors for notification delivery.
var (
	ErrNoWebhook = errors.New("slack webhook url not configured")
)
