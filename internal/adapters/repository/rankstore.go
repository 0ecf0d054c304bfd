package repository

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/okian/surrender/pkg/metrics"
)

const percentScale = 100

// FileRankStore is a RankStore backed by two JSON arrays of numbers: a
// read-only historical baseline and the append-only current season.
//
// The current season file is the source of truth across restarts. Every
// persisted score is flushed before Rank returns; a failed flush leaves the
// in-memory set unchanged.
type FileRankStore struct {
	mu sync.Mutex

	historical *multiset
	current    *multiset
	values     []float64 // current season in insertion order, as written to disk

	historicalPath string
	currentPath    string
	write          func(path string, v any) error
}

// OpenRankStore loads the baseline and the current season. An empty
// historicalPath means no baseline; a missing current file starts an empty season.
func OpenRankStore(_ context.Context, historicalPath, currentPath string, opts ...Option) (*FileRankStore, error) {
	s := &FileRankStore{
		historicalPath: historicalPath,
		currentPath:    currentPath,
		write:          writeJSONAtomic,
	}
	for _, opt := range opts {
		opt(s)
	}

	var baseline []float64
	if historicalPath != "" {
		found, err := readJSON(historicalPath, &baseline)
		if err != nil {
			return nil, fmt.Errorf("historical baseline: %w", err)
		}
		if !found {
			return nil, fmt.Errorf("historical baseline %s: file not found", historicalPath)
		}
	}
	if err := validValues(baseline); err != nil {
		return nil, fmt.Errorf("historical baseline %s: %w", historicalPath, err)
	}

	var current []float64
	if _, err := readJSON(currentPath, &current); err != nil {
		return nil, fmt.Errorf("current season: %w", err)
	}
	if err := validValues(current); err != nil {
		return nil, fmt.Errorf("current season %s: %w", currentPath, err)
	}

	s.historical = newMultiset(baseline)
	s.current = newMultiset(current)
	s.values = current
	s.reportSizes()
	return s, nil
}

// Rank implements RankStore.
func (s *FileRankStore) Rank(_ context.Context, score float64, persist bool) (Percentiles, error) {
	if !valid(score) {
		return Percentiles{}, fmt.Errorf("%w: %v", ErrInvalidScore, score)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	curLess := s.current.CountLess(score)
	curLen := s.current.Len()
	p := Percentiles{
		Current:    strictPercentile(curLess, curLen),
		Historical: strictPercentile(curLess+s.historical.CountLess(score), curLen+s.historical.Len()),
	}
	if !persist {
		return p, nil
	}

	next := make([]float64, len(s.values), len(s.values)+1)
	copy(next, s.values)
	next = append(next, score)

	start := time.Now()
	if err := s.write(s.currentPath, next); err != nil {
		return Percentiles{}, err
	}
	metrics.RecordRankStoreFlush(float64(time.Since(start).Microseconds()) / 1000)

	s.values = next
	s.current.Insert(score)
	s.reportSizes()
	return p, nil
}

// Sizes implements RankStore.
func (s *FileRankStore) Sizes() (current, historical int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Len(), s.historical.Len()
}

// CurrentValues returns a copy of the current season in insertion order.
func (s *FileRankStore) CurrentValues() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

func (s *FileRankStore) reportSizes() {
	metrics.UpdateRankStoreSize("current", s.current.Len())
	metrics.UpdateRankStoreSize("historical", s.historical.Len())
}

// strictPercentile is the share of n values strictly below the query, in
// [0,100]. An empty distribution ranks any value at 100.
func strictPercentile(less, n int) float64 {
	if n == 0 {
		return percentScale
	}
	return percentScale * float64(less) / float64(n)
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func validValues(vs []float64) error {
	for i, v := range vs {
		if !valid(v) {
			return fmt.Errorf("%w: value %d is %v", ErrCorruptState, i, v)
		}
	}
	return nil
}
