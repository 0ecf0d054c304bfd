package model

import "time"

// Notification is an operator-facing message.
type Notification struct {
	Kind string
	Text string
	At   time.Time
}
