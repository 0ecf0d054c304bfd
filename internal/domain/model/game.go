package model

import (
	"strings"
	"time"
)

const minPuntDrivePlays = 2

// DriveContext is the possession sequence containing a play.
type DriveContext struct {
	ID     string
	Team   string
	Result string
	Plays  []PlayEvent

	// Previous is the play immediately before the one being scored.
	Previous PlayEvent
}

// EndedInPunt reports whether the drive result mentions a punt.
func (d DriveContext) EndedInPunt() bool {
	return strings.Contains(strings.ToLower(d.Result), "punt")
}

// Punt locates the punt play of a finished drive. The returned context has
// Previous set to the play before it. ok is false when the drive did not end
// in a punt or is too short to carry a preceding play.
func (d DriveContext) Punt() (PlayEvent, DriveContext, bool) {
	if !d.EndedInPunt() || len(d.Plays) < minPuntDrivePlays {
		return PlayEvent{}, d, false
	}
	idx := -1
	for i := 1; i < len(d.Plays); i++ {
		if d.Plays[i].IsPunt() {
			idx = i
		}
	}
	if idx < 0 {
		idx = len(d.Plays) - 1
	}
	d.Previous = d.Plays[idx-1]
	return d.Plays[idx], d, true
}

// GameContext holds the boxscore identities and status of one game.
type GameContext struct {
	ID         string
	HomeTeam   string
	AwayTeam   string
	Postseason bool
	Final      bool
	Drives     []DriveContext
}

// Opponent returns the other team's abbreviation.
func (g GameContext) Opponent(team string) string {
	if team == g.HomeTeam {
		return g.AwayTeam
	}
	return g.HomeTeam
}

// ScoreFor returns (team score, opponent score) as of play p.
func (g GameContext) ScoreFor(team string, p PlayEvent) (int, int) {
	if team == g.HomeTeam {
		return p.HomeScore, p.AwayScore
	}
	return p.AwayScore, p.HomeScore
}

// Differential returns the team's lead as of play p; negative when trailing.
func (g GameContext) Differential(team string, p PlayEvent) int {
	own, other := g.ScoreFor(team, p)
	return own - other
}

// GameSummary is one schedule entry.
type GameSummary struct {
	ID      string
	Name    string
	Kickoff time.Time
}

// Feed names a publication channel.
type Feed string

// Feeds.
const (
	FeedMain    Feed = "main"
	FeedNotable Feed = "notable"
	FeedCancel  Feed = "cancel"
)

// Publication is the handle returned by the publish collaborator.
type Publication struct {
	ID   string
	Feed Feed
	Text string
}
