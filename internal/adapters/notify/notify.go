// Package notify delivers best-effort operator notifications.
//
// Callers use a Dispatcher, which only enqueues. Delivery to Slack or the
// log happens on the worker pool, and no delivery failure reaches the caller.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	"github.com/okian/surrender/internal/adapters/mq/queue"
	"github.com/okian/surrender/internal/domain/model"
	"github.com/okian/surrender/pkg/logger"
)

const defaultWebhookTimeout = 10 * time.Second

// Message kinds.
const (
	KindHeartbeat = "heartbeat"
	KindFault     = "fault"
	KindCancel    = "cancel"
)

// Slack posts notifications to an incoming webhook.
type Slack struct {
	url    string
	client *http.Client
}

// NewSlack creates a webhook sender.
func NewSlack(url string, opts ...SlackOption) (*Slack, error) {
	if url == "" {
		return nil, ErrNoWebhook
	}
	s := &Slack{
		url:    url,
		client: &http.Client{Timeout: defaultWebhookTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send implements worker.Sender.
func (s *Slack) Send(ctx context.Context, m model.Notification) error { //nolint:gocritic // hugeParam: matches Sender
	msg := &slack.WebhookMessage{Text: format(m)}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.url, s.client, msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}

// Log writes notifications to the logger. It serves when no webhook is set.
type Log struct {
	logger logger.Logger
}

// NewLog creates a log sender.
func NewLog(l logger.Logger) *Log {
	if l == nil {
		l = logger.GetOrDiscard()
	}
	return &Log{logger: l.Named("notify")}
}

// Send implements worker.Sender.
func (l *Log) Send(ctx context.Context, m model.Notification) error { //nolint:gocritic // hugeParam: matches Sender
	l.logger.Warn(ctx, "operator notification",
		logger.String("kind", m.Kind),
		logger.String("text", m.Text))
	return nil
}

func format(m model.Notification) string { //nolint:gocritic // hugeParam
	switch m.Kind {
	case KindFault:
		return ":rotating_light: " + m.Text
	case KindCancel:
		return ":no_entry_sign: " + m.Text
	default:
		return m.Text
	}
}

// Enqueuer is the intake side of the notification queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, m queue.Message) error
}

// Dispatcher is the fire-and-forget front of the notification path.
type Dispatcher struct {
	q        Enqueuer
	disabled bool
	now      func() time.Time
	logger   logger.Logger
}

// NewDispatcher creates a dispatcher feeding q.
func NewDispatcher(q Enqueuer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		q:      q,
		now:    time.Now,
		logger: logger.GetOrDiscard().Named("notify"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Cancellation reports the outcome of a cancellation case. It never fails.
func (d *Dispatcher) Cancellation(ctx context.Context, msg string) {
	d.Send(ctx, KindCancel, msg)
}

// Heartbeat announces the start of a daily cycle.
func (d *Dispatcher) Heartbeat(ctx context.Context) {
	d.Send(ctx, KindHeartbeat, "The Surrender Index bot is up and running.")
}

// Fault reports a caught error.
func (d *Dispatcher) Fault(ctx context.Context, what string, err error) {
	d.Send(ctx, KindFault, fmt.Sprintf("%s: %v", what, err))
}

// Send enqueues a message of the given kind.
func (d *Dispatcher) Send(ctx context.Context, kind, text string) {
	if d.disabled {
		d.logger.Debug(ctx, "notification suppressed", logger.String("kind", kind), logger.String("text", text))
		return
	}
	m := model.Notification{Kind: kind, Text: text, At: d.now()}
	if err := d.q.Enqueue(context.WithoutCancel(ctx), m); err != nil {
		d.logger.Warn(ctx, "notification dropped",
			logger.String("kind", kind),
			logger.Error(err))
	}
}
