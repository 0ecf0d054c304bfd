// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Midfield is the yard line that belongs to neither territory.
const Midfield = 50

// Spot describes the line of scrimmage at the snap.
type Spot struct {
	YardLine         int    // absolute 0-100 line as reported upstream
	PossessionText   string // side-of-field label, e.g. "KC 35"
	YardsToEndzone   int    // distance to the opponent's goal line
	Distance         int    // yards to go for a first down
	Down             int
	DownDistanceText string // e.g. "4th & 7"
}

// IsMidfield reports whether the ball sits on the 50.
func (s Spot) IsMidfield() bool { return s.YardLine == Midfield }

// InOpponentTerritory reports whether the line of scrimmage is past midfield.
func (s Spot) InOpponentTerritory() bool { return s.YardsToEndzone < Midfield }

// SideYardLine returns the 0-50 yard line measured from the territory's own goal line.
func (s Spot) SideYardLine() (int, error) {
	if s.IsMidfield() {
		return Midfield, nil
	}
	parts := strings.Fields(s.PossessionText)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedFieldPosition, s.PossessionText)
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 0 || n > Midfield {
		return 0, fmt.Errorf("%w: %q", ErrMalformedFieldPosition, s.PossessionText)
	}
	return n, nil
}

// PlayEvent is one snapshot of a single play. Treat as immutable.
type PlayEvent struct {
	ID        string
	Team      string // possessing team abbreviation
	Period    int    // 1-4 regulation, 5+ overtime
	Clock     string // "MM:SS" remaining in the period
	Start     Spot
	HomeScore int
	AwayScore int
	Text      string
	Type      string
}

// ClockSeconds converts the game clock to seconds remaining in the period.
func (p PlayEvent) ClockSeconds() (int, error) {
	return ParseClock(p.Clock)
}

// IsPunt classifies the play by its type label.
func (p PlayEvent) IsPunt() bool {
	return strings.Contains(strings.ToLower(p.Type), "punt")
}

// IsDelayOfGame reports whether the play text describes a delay of game penalty.
func (p PlayEvent) IsDelayOfGame() bool {
	return strings.Contains(strings.ToLower(p.Text), "delay of game")
}

// WithStart returns a copy of p snapped from s.
func (p PlayEvent) WithStart(s Spot) PlayEvent {
	p.Start = s
	return p
}

// ParseClock converts "MM:SS" to seconds.
func ParseClock(clock string) (int, error) {
	mm, ss, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMalformedClock, clock)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedClock, clock)
	}
	s, err := strconv.Atoi(ss)
	if err != nil || s < 0 || s > 59 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedClock, clock)
	}
	return m*60 + s, nil
}
