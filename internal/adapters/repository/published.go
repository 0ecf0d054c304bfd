package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/okian/surrender/internal/domain/dedupe"
)

const defaultFreshness = 12 * time.Hour

// PublishedIndex is a PublishedStore persisted as a JSON object of game id
// to published play keys. Entries are only ever added; the whole file is
// reset when it has not been written for longer than the freshness window.
type PublishedIndex struct {
	mu        sync.Mutex
	path      string
	games     map[string][]dedupe.PlayKey
	freshness time.Duration
	tolerance int
	now       func() time.Time
}

// OpenPublishedIndex loads path, resetting it when stale.
func OpenPublishedIndex(ctx context.Context, path string, opts ...IndexOption) (*PublishedIndex, error) {
	p := &PublishedIndex{
		path:      path,
		games:     map[string][]dedupe.PlayKey{},
		freshness: defaultFreshness,
		tolerance: dedupe.DefaultToleranceSeconds,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.Refresh(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Refresh reloads the file, or rewrites it empty when missing or stale.
func (p *PublishedIndex) Refresh(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, err := os.Stat(p.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("published index: %w", err)
	case p.now().Sub(info.ModTime()) < p.freshness:
		games := map[string][]dedupe.PlayKey{}
		if _, err := readJSON(p.path, &games); err != nil {
			return fmt.Errorf("published index: %w", err)
		}
		p.games = games
		return nil
	}

	p.games = map[string][]dedupe.PlayKey{}
	return writeJSONAtomic(p.path, p.games)
}

// Has reports whether a play matching key was published for gameID.
func (p *PublishedIndex) Has(_ context.Context, gameID string, key dedupe.PlayKey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return dedupe.Contains(p.games[gameID], key, p.tolerance)
}

// Add records key for gameID and flushes the file.
func (p *PublishedIndex) Add(_ context.Context, gameID string, key dedupe.PlayKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if dedupe.Contains(p.games[gameID], key, p.tolerance) {
		return nil
	}
	next := make(map[string][]dedupe.PlayKey, len(p.games)+1)
	for id, keys := range p.games {
		next[id] = keys
	}
	keys := p.games[gameID]
	next[gameID] = append(keys[:len(keys):len(keys)], key)

	if err := writeJSONAtomic(p.path, next); err != nil {
		return err
	}
	p.games = next
	return nil
}

// Len returns the number of published plays across games.
func (p *PublishedIndex) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, keys := range p.games {
		n += len(keys)
	}
	return n
}
