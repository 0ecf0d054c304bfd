// Package espn fetches the NFL schedule and per-game play-by-play from the
// public ESPN site API and normalizes them into domain models.
package espn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/okian/surrender/internal/domain/model"
	"github.com/okian/surrender/pkg/logger"
	"github.com/okian/surrender/pkg/metrics"
)

// Defaults.
const (
	DefaultBaseURL = "https://site.api.espn.com/apis/site/v2/sports/football/nfl"

	defaultTimeout       = 10 * time.Second
	defaultRate          = 2
	defaultMaxRetries    = 5
	defaultRetryInterval = time.Second
	maxRetryInterval     = 30 * time.Second
)

// Client is the schedule and game-state collaborator.
type Client struct {
	baseURL       string
	hc            *http.Client
	limiter       *rate.Limiter
	maxRetries    uint64
	retryInterval time.Duration
	logger        logger.Logger
}

// NewClient creates a client with configuration options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		hc:            &http.Client{Timeout: defaultTimeout},
		limiter:       rate.NewLimiter(rate.Limit(defaultRate), 1),
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
		logger:        logger.GetOrDiscard().Named("espn"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schedule returns the games of the current scoreboard week.
func (c *Client) Schedule(ctx context.Context) ([]model.GameSummary, error) {
	var resp scoreboardResponse
	if err := c.getJSON(ctx, "scoreboard", c.baseURL+"/scoreboard", &resp); err != nil {
		return nil, err
	}
	games := make([]model.GameSummary, 0, len(resp.Events))
	for _, e := range resp.Events {
		games = append(games, model.GameSummary{ID: e.ID, Name: e.Name, Kickoff: e.Date.Time})
	}
	return games, nil
}

// GameState returns the normalized summary of one game.
func (c *Client) GameState(ctx context.Context, gameID string) (model.GameContext, error) {
	var resp summaryResponse
	u := c.baseURL + "/summary?" + url.Values{"event": {gameID}}.Encode()
	if err := c.getJSON(ctx, "summary", u, &resp); err != nil {
		return model.GameContext{}, err
	}
	if resp.Header.ID == "" {
		resp.Header.ID = gameID
	}
	g, err := normalize(resp)
	if err != nil {
		return model.GameContext{}, fmt.Errorf("game %s: %w", gameID, err)
	}
	return g, nil
}

func (c *Client) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxInterval = maxRetryInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)
}

// getJSON retries network errors and 5xx answers; 4xx and decode failures
// are permanent.
func (c *Client) getJSON(ctx context.Context, endpoint, u string, v any) error {
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		resp, err := c.hc.Do(req)
		if err != nil {
			return fmt.Errorf("get %s: %w", endpoint, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			_, _ = io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("%w: %s returned %d", ErrUpstreamStatus, endpoint, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("%w: %s returned %d", ErrUpstreamStatus, endpoint, resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %s: %w", ErrMalformedResponse, endpoint, err))
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		metrics.RecordUpstreamRetry(endpoint)
		c.logger.Warn(ctx, "retrying upstream request",
			logger.String("endpoint", endpoint),
			logger.Duration("wait", wait),
			logger.Error(err))
	}
	if err := backoff.RetryNotify(op, c.retryPolicy(ctx), notify); err != nil {
		return fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	return nil
}
