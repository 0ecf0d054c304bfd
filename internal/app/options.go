package service

import (
	"time"

	"github.com/okian/surrender/internal/adapters/mq/worker"
	"github.com/okian/surrender/pkg/logger"
)

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock sets the time source.
func WithClock(c Clock) SchedulerOption {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithWindow sets how long before and after kickoff a game is polled.
func WithWindow(pre, post time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if pre >= 0 && post > 0 {
			s.preGame = pre
			s.postGame = post
		}
	}
}

// WithIdleSleep sets the wait when no game is active.
func WithIdleSleep(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.idleSleep = d
		}
	}
}

// WithPollInterval sets the minimum duration of one poll cycle.
func WithPollInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithRestartHour sets the local hour the daily cycle ends at.
func WithRestartHour(hour int) SchedulerOption {
	return func(s *Scheduler) {
		if hour >= 0 && hour <= 23 {
			s.restartHour = hour
		}
	}
}

// WithBackoff sets the first fault backoff and its cap.
func WithBackoff(initial, maxInterval time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if initial > 0 && maxInterval >= initial {
			s.backoffInitial = initial
			s.backoffMax = maxInterval
		}
	}
}

// WithFinalCheck toggles completing games once they report final.
func WithFinalCheck(enabled bool) SchedulerOption {
	return func(s *Scheduler) {
		s.finalCheck = enabled
	}
}

// WithNotifier sets the operator notifier.
func WithNotifier(n Notifier) SchedulerOption {
	return func(s *Scheduler) {
		s.notifier = n
	}
}

// WithRefresher sets the state refreshed at the start of every day.
func WithRefresher(r Refresher) SchedulerOption {
	return func(s *Scheduler) {
		s.refresher = r
	}
}

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(l logger.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServiceClock sets the clock used by the scheduler and state files.
func WithServiceClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithPublisher replaces the publisher chosen from configuration.
func WithPublisher(p SocialPublisher) Option {
	return func(s *Service) {
		s.pub = p
	}
}

// WithGameSource replaces the ESPN client.
func WithGameSource(src GameSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithNotifySender replaces the Slack or log sender.
func WithNotifySender(sender worker.Sender) Option {
	return func(s *Service) {
		s.sender = sender
	}
}
