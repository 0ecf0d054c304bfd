// Package config defines the bot configuration and its loading hooks.
//
// Conventions:
// - Flat koanf keys; env vars map SURRENDER_<KEY> to <key>.
// - New returns a Config holding every default; Load layers sources on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Cancellation drivers.
const (
	CancelDriverLocal    = "local"
	CancelDriverTemporal = "temporal"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address for /healthz and /stats.
	Addr string `koanf:"addr"`

	// DataDir holds the state files unless a file path is absolute.
	DataDir        string `koanf:"data_dir"`
	HistoricalFile string `koanf:"historical_file"`
	CurrentFile    string `koanf:"current_file"`
	PublishedFile  string `koanf:"published_file"`

	// PublishedFreshness is the age after which the published index is treated as empty.
	PublishedFreshness time.Duration `koanf:"published_freshness"`

	// Polling window around kickoff.
	PreGameWindow  time.Duration `koanf:"pre_game_window"`
	PostGameWindow time.Duration `koanf:"post_game_window"`
	IdleSleep      time.Duration `koanf:"idle_sleep"`
	PollInterval   time.Duration `koanf:"poll_interval"`

	// RestartHour is the local wall-clock hour the daily cycle ends at.
	RestartHour int `koanf:"restart_hour"`

	BackoffInitial time.Duration `koanf:"backoff_initial"`
	BackoffMax     time.Duration `koanf:"backoff_max"`

	NotablePercentile     float64       `koanf:"notable_percentile"`
	CancelThreshold       float64       `koanf:"cancel_threshold"`
	CancelPollDuration    time.Duration `koanf:"cancel_poll_duration"`
	CancelVerifyDelay     time.Duration `koanf:"cancel_verify_delay"`
	ClockToleranceSeconds int           `koanf:"clock_tolerance_seconds"`

	// SeasonYear labels the current season in publication text; 0 derives it from the clock.
	SeasonYear       int `koanf:"season_year"`
	HistorySinceYear int `koanf:"history_since_year"`

	ESPNBaseURL       string  `koanf:"espn_base_url"`
	ESPNRatePerSecond float64 `koanf:"espn_rate_per_second"`
	ESPNMaxRetries    int     `koanf:"espn_max_retries"`

	SlackWebhookURL string `koanf:"slack_webhook_url"`
	NotifyQueueSize int    `koanf:"notify_queue_size"`

	PublishingEnabled    bool `koanf:"publishing_enabled"`
	NotificationsEnabled bool `koanf:"notifications_enabled"`
	FinalCheckEnabled    bool `koanf:"final_check_enabled"`
	CancelEnabled        bool `koanf:"cancel_enabled"`

	// CancelDriver selects "local" goroutines or "temporal" workflows.
	CancelDriver      string `koanf:"cancel_driver"`
	TemporalHost      string `koanf:"temporal_host"`
	TemporalNamespace string `koanf:"temporal_namespace"`
	TemporalTaskQueue string `koanf:"temporal_task_queue"`

	XAPIBaseURL   string `koanf:"x_api_base_url"`
	XTokenURL     string `koanf:"x_token_url"`
	XClientID     string `koanf:"x_client_id"`
	XClientSecret string `koanf:"x_client_secret"`

	MainAccessToken     string `koanf:"main_access_token"`
	MainRefreshToken    string `koanf:"main_refresh_token"`
	NotableAccessToken  string `koanf:"notable_access_token"`
	NotableRefreshToken string `koanf:"notable_refresh_token"`
	CancelAccessToken   string `koanf:"cancel_access_token"`
	CancelRefreshToken  string `koanf:"cancel_refresh_token"`

	// NotableHandleURL prefixes notable post ids when building quote links.
	NotableHandleURL string `koanf:"notable_handle_url"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		DataDir:               "data",
		HistoricalFile:        "historical_surrender_indices.json",
		CurrentFile:           "current_surrender_indices.json",
		PublishedFile:         "tweeted_plays.json",
		PublishedFreshness:    12 * time.Hour,
		PreGameWindow:         15 * time.Minute,
		PostGameWindow:        6 * time.Hour,
		IdleSleep:             14 * time.Minute,
		PollInterval:          30 * time.Second,
		RestartHour:           5,
		BackoffInitial:        time.Minute,
		BackoffMax:            12 * time.Hour,
		NotablePercentile:     90,
		CancelThreshold:       66.67,
		CancelPollDuration:    60 * time.Minute,
		CancelVerifyDelay:     61 * time.Minute,
		ClockToleranceSeconds: 50,
		HistorySinceYear:      1999,
		ESPNBaseURL:           "https://site.api.espn.com/apis/site/v2/sports/football/nfl",
		ESPNRatePerSecond:     2,
		ESPNMaxRetries:        5,
		NotifyQueueSize:       256,
		PublishingEnabled:     true,
		NotificationsEnabled:  true,
		FinalCheckEnabled:     true,
		CancelEnabled:         true,
		CancelDriver:          CancelDriverLocal,
		TemporalHost:          "localhost:7233",
		TemporalNamespace:     "default",
		TemporalTaskQueue:     "surrender-cancellation",
		XAPIBaseURL:           "https://api.twitter.com",
		XTokenURL:             "https://api.twitter.com/2/oauth2/token",
		NotableHandleURL:      "https://twitter.com/surrender_idx90/status/",
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.RestartHour < 0 || c.RestartHour > 23:
		return fmt.Errorf("%w: restart_hour %d out of range", ErrInvalidConfig, c.RestartHour)
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalidConfig)
	case c.BackoffInitial <= 0 || c.BackoffMax < c.BackoffInitial:
		return fmt.Errorf("%w: backoff_initial %s, backoff_max %s", ErrInvalidConfig, c.BackoffInitial, c.BackoffMax)
	case c.NotablePercentile < 0 || c.NotablePercentile > 100:
		return fmt.Errorf("%w: notable_percentile %.2f out of range", ErrInvalidConfig, c.NotablePercentile)
	case c.CancelThreshold < 0 || c.CancelThreshold > 100:
		return fmt.Errorf("%w: cancel_threshold %.2f out of range", ErrInvalidConfig, c.CancelThreshold)
	case c.ClockToleranceSeconds <= 0:
		return fmt.Errorf("%w: clock_tolerance_seconds must be positive", ErrInvalidConfig)
	case c.ESPNRatePerSecond <= 0:
		return fmt.Errorf("%w: espn_rate_per_second must be positive", ErrInvalidConfig)
	case c.ESPNMaxRetries < 0:
		return fmt.Errorf("%w: espn_max_retries must not be negative", ErrInvalidConfig)
	case c.NotifyQueueSize <= 0:
		return fmt.Errorf("%w: notify_queue_size must be positive", ErrInvalidConfig)
	case c.CancelDriver != CancelDriverLocal && c.CancelDriver != CancelDriverTemporal:
		return fmt.Errorf("%w: unknown cancel_driver %q", ErrInvalidConfig, c.CancelDriver)
	}
	return nil
}

// RequireXCredentials reports which account tokens are missing for live publishing.
func (c *Config) RequireXCredentials() error {
	var missing []string
	for key, val := range map[string]string{
		"x_client_id":          c.XClientID,
		"main_access_token":    c.MainAccessToken,
		"notable_access_token": c.NotableAccessToken,
	} {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if c.CancelEnabled && c.CancelAccessToken == "" {
		missing = append(missing, "cancel_access_token")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrMissingSecret, strings.Join(missing, ", "))
	}
	return nil
}

// Season returns the configured season year, or the NFL season that contains now.
func (c *Config) Season(now time.Time) int {
	if c.SeasonYear > 0 {
		return c.SeasonYear
	}
	// January and February games belong to the previous year's season.
	if now.Month() <= time.February {
		return now.Year() - 1
	}
	return now.Year()
}
