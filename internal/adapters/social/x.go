// Package social publishes to the three feeds: main, notable and cancel.
//
// X talks to the X API v2 with one OAuth2 user token per account. DryRun
// logs what would have been posted and is used when publishing is disabled.
package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/okian/surrender/internal/domain/cancel"
	"github.com/okian/surrender/internal/domain/model"
	"github.com/okian/surrender/pkg/logger"
	"github.com/okian/surrender/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// Account holds the credentials of one feed.
type Account struct {
	AccessToken  string
	RefreshToken string
}

// Credentials configure the X publisher.
type Credentials struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Accounts     map[model.Feed]Account
}

// X is the publish collaborator backed by the X API.
type X struct {
	baseURL string
	clients map[model.Feed]*http.Client
	logger  logger.Logger
}

// NewX creates a publisher. Each account's client refreshes its token on
// expiry through the oauth2 token endpoint.
func NewX(ctx context.Context, creds Credentials, opts ...Option) *X {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: creds.TokenURL},
	}
	x := &X{
		baseURL: creds.BaseURL,
		clients: make(map[model.Feed]*http.Client, len(creds.Accounts)),
		logger:  logger.GetOrDiscard().Named("social"),
	}
	for feed, acct := range creds.Accounts {
		if acct.AccessToken == "" {
			continue
		}
		tok := &oauth2.Token{AccessToken: acct.AccessToken, RefreshToken: acct.RefreshToken, TokenType: "Bearer"}
		hc := conf.Client(ctx, tok)
		hc.Timeout = requestTimeout
		x.clients[feed] = hc
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

type tweetRequest struct {
	Text         string      `json:"text"`
	Reply        *replyField `json:"reply,omitempty"`
	QuoteTweetID string      `json:"quote_tweet_id,omitempty"`
	Poll         *pollField  `json:"poll,omitempty"`
}

type replyField struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type pollField struct {
	Options         []string `json:"options"`
	DurationMinutes int      `json:"duration_minutes"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type lookupResponse struct {
	Includes struct {
		Polls []struct {
			Options []struct {
				Position int    `json:"position"`
				Label    string `json:"label"`
				Votes    int    `json:"votes"`
			} `json:"options"`
		} `json:"polls"`
	} `json:"includes"`
}

// Post publishes text on feed.
func (x *X) Post(ctx context.Context, feed model.Feed, text string) (model.Publication, error) {
	return x.create(ctx, feed, tweetRequest{Text: text})
}

// Reply threads text under parent.
func (x *X) Reply(ctx context.Context, feed model.Feed, parent model.Publication, text string) (model.Publication, error) {
	return x.create(ctx, feed, tweetRequest{Text: text, Reply: &replyField{InReplyToTweetID: parent.ID}})
}

// PostPoll threads a poll under replyTo.
func (x *X) PostPoll(ctx context.Context, feed model.Feed, replyTo model.Publication, text string, options []string, duration time.Duration) (model.Publication, error) {
	return x.create(ctx, feed, tweetRequest{
		Text:  text,
		Reply: &replyField{InReplyToTweetID: replyTo.ID},
		Poll:  &pollField{Options: options, DurationMinutes: int(duration / time.Minute)},
	})
}

// Quote publishes text quoting quoted.
func (x *X) Quote(ctx context.Context, feed model.Feed, text string, quoted model.Publication) (model.Publication, error) {
	return x.create(ctx, feed, tweetRequest{Text: text, QuoteTweetID: quoted.ID})
}

// Delete removes pub from its feed.
func (x *X) Delete(ctx context.Context, pub model.Publication) error {
	hc, err := x.client(pub.Feed)
	if err != nil {
		return err
	}
	return x.do(ctx, hc, http.MethodDelete, "/2/tweets/"+url.PathEscape(pub.ID), nil, nil)
}

// ReadPollTally reads the vote shares of the poll attached to poll.
func (x *X) ReadPollTally(ctx context.Context, poll model.Publication) (cancel.Tally, error) {
	hc, err := x.client(poll.Feed)
	if err != nil {
		return cancel.Tally{}, fmt.Errorf("%w: %w", cancel.ErrTallyUnavailable, err)
	}
	q := url.Values{
		"expansions":  {"attachments.poll_ids"},
		"poll.fields": {"options,voting_status"},
	}
	var resp lookupResponse
	if err := x.do(ctx, hc, http.MethodGet, "/2/tweets/"+url.PathEscape(poll.ID)+"?"+q.Encode(), nil, &resp); err != nil {
		return cancel.Tally{}, fmt.Errorf("%w: %w", cancel.ErrTallyUnavailable, err)
	}
	if len(resp.Includes.Polls) == 0 {
		return cancel.Tally{}, fmt.Errorf("%w: %w", cancel.ErrTallyUnavailable, ErrNoPoll)
	}

	var yes, total int
	for _, o := range resp.Includes.Polls[0].Options {
		total += o.Votes
		if o.Position == 1 {
			yes = o.Votes
		}
	}
	if total == 0 {
		return cancel.Tally{}, nil
	}
	yesPct := float64(yes) * 100 / float64(total)
	return cancel.Tally{Yes: yesPct, No: 100 - yesPct}, nil
}

func (x *X) client(feed model.Feed) (*http.Client, error) {
	hc, ok := x.clients[feed]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeed, feed)
	}
	return hc, nil
}

func (x *X) create(ctx context.Context, feed model.Feed, body tweetRequest) (model.Publication, error) { //nolint:gocritic // hugeParam
	hc, err := x.client(feed)
	if err != nil {
		return model.Publication{}, err
	}
	var resp tweetResponse
	if err := x.do(ctx, hc, http.MethodPost, "/2/tweets", body, &resp); err != nil {
		metrics.RecordPublishFailure(string(feed))
		return model.Publication{}, fmt.Errorf("post to %s: %w", feed, err)
	}
	metrics.RecordPublication(string(feed))
	x.logger.Info(ctx, "published",
		logger.String("feed", string(feed)),
		logger.String("id", resp.Data.ID))
	return model.Publication{ID: resp.Data.ID, Feed: feed, Text: body.Text}, nil
}

func (x *X) do(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrAPIStatus, method, path, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
