// Package dedupe resolves play identity across upstream redeliveries.
//
// The feed may resend a play with a corrected clock or yard line, so identity
// is a (team, period) pair plus a fuzzy clock window rather than an exact key.
package dedupe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/surrender/internal/domain/model"
)

// DefaultToleranceSeconds is the clock window inside which two plays match.
const DefaultToleranceSeconds = 50

// PlayKey is the identity of a play within one game.
type PlayKey struct {
	Team         string `json:"team"`
	Period       int    `json:"period"`
	ClockSeconds int    `json:"clock"`
}

// KeyOf derives the identity of play. The drive team stands in when the play
// carries none.
func KeyOf(play model.PlayEvent, drive model.DriveContext) (PlayKey, error) {
	secs, err := play.ClockSeconds()
	if err != nil {
		return PlayKey{}, fmt.Errorf("identity of play %s: %w", play.ID, err)
	}
	team := play.Team
	if team == "" {
		team = drive.Team
	}
	return PlayKey{Team: team, Period: play.Period, ClockSeconds: secs}, nil
}

// Matches reports whether k and o describe the same real-world play.
func (k PlayKey) Matches(o PlayKey, tolerance int) bool {
	if k.Team != o.Team || k.Period != o.Period {
		return false
	}
	d := k.ClockSeconds - o.ClockSeconds
	if d < 0 {
		d = -d
	}
	return d < tolerance
}

// Contains reports whether any key in keys matches k.
func Contains(keys []PlayKey, k PlayKey, tolerance int) bool {
	for _, o := range keys {
		if o.Matches(k, tolerance) {
			return true
		}
	}
	return false
}

// Resolver records seen plays per game to ensure each is scored once.
type Resolver interface {
	// IsDuplicate reports whether key was already seen for gameID and
	// records it if not. Returns false on first sight.
	IsDuplicate(ctx context.Context, gameID string, key PlayKey) bool

	// Unrecord removes a key so the play can be retried. Only use it when
	// the play failed before anything was persisted.
	Unrecord(ctx context.Context, gameID string, key PlayKey)

	// Size returns the number of recorded keys across games.
	Size() int64
}

// inMemoryResolver implements Resolver with a per-game key list.
// Games are evicted oldest-first once maxGames is reached (0 = unbounded).
type inMemoryResolver struct {
	mu        sync.Mutex
	seen      map[string][]PlayKey
	order     []string // game ids by first sight
	tolerance int
	maxGames  int
	size      atomic.Int64
}

// NewInMemoryResolver creates a resolver with configuration options.
func NewInMemoryResolver(opts ...Option) Resolver {
	r := &inMemoryResolver{
		tolerance: DefaultToleranceSeconds,
		maxGames:  64,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.seen = make(map[string][]PlayKey)
	return r
}

func (r *inMemoryResolver) IsDuplicate(_ context.Context, gameID string, key PlayKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys, known := r.seen[gameID]
	if Contains(keys, key, r.tolerance) {
		return true
	}
	if !known {
		if r.maxGames > 0 && len(r.order) >= r.maxGames {
			r.evictOldest()
		}
		r.order = append(r.order, gameID)
	}
	r.seen[gameID] = append(keys, key)
	r.size.Add(1)
	return false
}

func (r *inMemoryResolver) Unrecord(_ context.Context, gameID string, key PlayKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := r.seen[gameID]
	for i, o := range keys {
		if o == key {
			r.seen[gameID] = append(keys[:i:i], keys[i+1:]...)
			r.size.Add(-1)
			return
		}
	}
}

// evictOldest drops the game seen first. Must be called with r.mu held.
func (r *inMemoryResolver) evictOldest() {
	if len(r.order) == 0 {
		return
	}
	oldest := r.order[0]
	r.order = r.order[1:]
	r.size.Add(-int64(len(r.seen[oldest])))
	delete(r.seen, oldest)
}

func (r *inMemoryResolver) Size() int64 {
	return r.size.Load()
}
