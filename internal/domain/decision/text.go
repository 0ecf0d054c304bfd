package decision

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/surrender/internal/domain/model"
)

func (e *Engine) composeMain(in Input) string {
	team := possessingTeam(in)
	mark := ""
	if in.Result.DelayOfGame {
		mark = "*"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s decided to punt to %s from the %s%s on %s%s with %s remaining in %s while %s.",
		team, in.Game.Opponent(team),
		in.Play.Start.PossessionText, mark,
		in.Play.Start.DownDistanceText, mark,
		in.Play.Clock, PeriodLabel(in.Play.Period),
		ScoreLine(in.Game, team, in.Drive.Previous),
	)
	fmt.Fprintf(&b, "\n\nWith a Surrender Index of %s, this punt ranks at the %s percentile of cowardly punts of the %d season, and the %s percentile of all punts since %d.",
		RoundString(in.Result.Index, 2),
		PercentileString(in.Rank.Current), in.Season,
		PercentileString(in.Rank.Historical), e.sinceYear,
	)
	return b.String()
}

func composeDelayOfGame(in Input) string {
	team := possessingTeam(in)
	prev := in.Drive.Previous.Start
	cur := in.Play.Start

	var b strings.Builder
	fmt.Fprintf(&b, "*%s committed a (likely intentional) delay of game penalty, moving the play from %s at the %s to %s at the %s.",
		team, prev.DownDistanceText, prev.PossessionText, cur.DownDistanceText, cur.PossessionText)
	fmt.Fprintf(&b, "\n\nIf this penalty was in fact unintentional, the Surrender Index would be %s, ranking at the %s percentile of the %d season.",
		RoundString(in.Result.AsIfUnintentional.Index, 2),
		PercentileString(in.AsIfUnintentionalRank.Current), in.Season)
	return b.String()
}

func possessingTeam(in Input) string {
	if in.Play.Team != "" {
		return in.Play.Team
	}
	return in.Drive.Team
}

// PeriodLabel names a period: "the 1st" through "the 4th", then "OT", "2 OT", ...
func PeriodLabel(period int) string {
	switch {
	case period <= 0:
		return ""
	case period <= 4:
		s := strconv.Itoa(period)
		return "the " + s + ordinalSuffix(s)
	case period == 5:
		return "OT"
	default:
		return strconv.Itoa(period-4) + " OT"
	}
}

// ScoreLine describes the score for team as of play, e.g. "losing 17 to 20".
func ScoreLine(game model.GameContext, team string, play model.PlayEvent) string {
	own, other := game.ScoreFor(team, play)
	state := "tied"
	switch {
	case own > other:
		state = "winning"
	case own < other:
		state = "losing"
	}
	return fmt.Sprintf("%s %d to %d", state, own, other)
}

// PercentileString renders a percentile as an ordinal. The 99th percentile
// gets extra precision since most notable punts land there.
func PercentileString(p float64) string {
	whole := int(p)
	if m := whole % 100; m >= 11 && m <= 13 {
		return strconv.Itoa(whole) + "th"
	}
	if whole == 99 {
		var s string
		switch {
		case p < 99.9:
			s = RoundString(p, 1)
		case p < 99.99:
			s = RoundString(p, 2)
		default:
			s = floatString(math.Trunc(p*1000) / 1000)
		}
		return s + ordinalSuffix(s)
	}
	s := strconv.Itoa(whole)
	return s + ordinalSuffix(s)
}

// RoundString rounds v to digits decimals, dropping trailing zeros but
// keeping at least one decimal: 12.5, 3.0, 8.04.
func RoundString(v float64, digits int) string {
	s := strconv.FormatFloat(v, 'f', digits, 64)
	if !strings.Contains(s, ".") {
		return s + ".0"
	}
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

func floatString(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func ordinalSuffix(s string) string {
	if s == "" {
		return "th"
	}
	switch s[len(s)-1] {
	case '1':
		return "st"
	case '2':
		return "nd"
	case '3':
		return "rd"
	default:
		return "th"
	}
}
