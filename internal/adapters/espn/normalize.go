package espn

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/okian/surrender/internal/domain/model"
)

const (
	statusFinal        = "STATUS_FINAL"
	regularSeasonTypes = 2 // 1 preseason, 2 regular, 3+ postseason
)

// ParseSummary decodes a game summary document into a GameContext.
func ParseSummary(r io.Reader) (model.GameContext, error) {
	var resp summaryResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return model.GameContext{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return normalize(resp)
}

func normalize(resp summaryResponse) (model.GameContext, error) { //nolint:gocritic // hugeParam: decoded once
	teams := resp.Boxscore.Teams
	if len(teams) < 2 {
		return model.GameContext{}, fmt.Errorf("%w: boxscore has %d teams", ErrMalformedResponse, len(teams))
	}
	abbr := make(map[string]string, len(teams))
	for _, t := range teams {
		abbr[t.Team.ID] = t.Team.Abbreviation
	}

	g := model.GameContext{
		ID:         resp.Header.ID,
		AwayTeam:   teams[0].Team.Abbreviation,
		HomeTeam:   teams[1].Team.Abbreviation,
		Postseason: resp.Header.Season.Type > regularSeasonTypes,
	}
	if comps := resp.Header.Competitions; len(comps) > 0 {
		g.Final = comps[0].Status.Type.Name == statusFinal
	}

	g.Drives = make([]model.DriveContext, 0, len(resp.Drives.Previous))
	for _, d := range resp.Drives.Previous {
		drive := model.DriveContext{
			ID:     d.ID,
			Result: d.Result,
			Team:   d.Team.Abbreviation,
			Plays:  make([]model.PlayEvent, 0, len(d.Plays)),
		}
		if drive.Team == "" {
			drive.Team = abbr[d.Team.ID]
		}
		for _, p := range d.Plays {
			drive.Plays = append(drive.Plays, normalizePlay(p, abbr))
		}
		g.Drives = append(g.Drives, drive)
	}
	return g, nil
}

func normalizePlay(p playJSON, abbr map[string]string) model.PlayEvent { //nolint:gocritic // hugeParam
	teamID := p.Start.Team.ID
	if teamID == "" {
		teamID = p.End.Team.ID
	}
	return model.PlayEvent{
		ID:     p.ID,
		Team:   abbr[teamID],
		Period: p.Period.Number,
		Clock:  p.Clock.DisplayValue,
		Start: model.Spot{
			YardLine:         p.Start.YardLine,
			PossessionText:   p.Start.PossessionText,
			YardsToEndzone:   p.Start.YardsToEndzone,
			Distance:         p.Start.Distance,
			Down:             p.Start.Down,
			DownDistanceText: p.Start.ShortDownText,
		},
		HomeScore: p.HomeScore,
		AwayScore: p.AwayScore,
		Text:      p.Text,
		Type:      p.Type.Text,
	}
}
