// Package scoring computes the surrender index of a punt.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/surrender/internal/domain/model"
	"github.com/okian/surrender/pkg/logger"
)

// Formula constants.
const (
	regulationPeriods    = 4
	halftimePeriod       = 2
	periodSeconds        = 15 * 60
	regularSeasonOTSecs  = 10 * 60
	ownTerritoryFlatLine = 40
	clockScale           = 0.001
	clockExponent        = 3
	bigDeficit           = -8
)

var midfieldScore = math.Pow(1.1, 10) //nolint:gochecknoglobals // formula constant

// Breakdown holds the four sub-scores and their product.
type Breakdown struct {
	FieldPosition float64
	YardsToGo     float64
	Score         float64
	Clock         float64
	Index         float64
}

// Result is the output of Calculator.Score.
type Result struct {
	// Breakdown is scored from the actual snap and is the value to rank and persist.
	Breakdown

	// DelayOfGame is set when the previous play was a distance-increasing
	// delay of game penalty; AsIfUnintentional then holds the index scored
	// from the pre-penalty spot, for display only.
	DelayOfGame       bool
	AsIfUnintentional Breakdown
}

// Scorer computes the surrender index of a punt.
type Scorer interface {
	Score(ctx context.Context, play model.PlayEvent, drive model.DriveContext, game model.GameContext) (Result, error)
}

// Calculator implements Scorer. It is pure and safe for concurrent use.
type Calculator struct {
	logger logger.Logger
}

// NewCalculator creates a calculator with configuration options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.GetOrDiscard()
	}
	return c
}

// Score computes the index of play. drive.Previous must hold the play before
// it, whose score line decides the score and clock multipliers.
func (c *Calculator) Score(ctx context.Context, play model.PlayEvent, drive model.DriveContext, game model.GameContext) (Result, error) {
	res := Result{}
	b, err := c.breakdown(ctx, play, drive, game)
	if err != nil {
		return Result{}, err
	}
	res.Breakdown = b

	if IsDelayOfGame(play, drive.Previous) {
		res.DelayOfGame = true
		res.AsIfUnintentional, err = c.breakdown(ctx, play.WithStart(drive.Previous.Start), drive, game)
		if err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

// IsDelayOfGame reports whether prev was a delay of game that pushed play back.
func IsDelayOfGame(play, prev model.PlayEvent) bool {
	return prev.IsDelayOfGame() && play.Start.Distance-prev.Start.Distance > 0
}

func (c *Calculator) breakdown(ctx context.Context, play model.PlayEvent, drive model.DriveContext, game model.GameContext) (Breakdown, error) {
	team := possessingTeam(play, drive)
	diff := game.Differential(team, drive.Previous)

	clock, err := ClockMultiplier(play, diff, game.Postseason)
	if err != nil {
		return Breakdown{}, fmt.Errorf("play %s: %w", play.ID, err)
	}

	b := Breakdown{
		FieldPosition: FieldPosition(play.Start),
		YardsToGo:     YardsToGo(play.Start.Distance),
		Score:         ScoreMultiplier(diff),
		Clock:         clock,
	}
	b.Index = b.FieldPosition * b.YardsToGo * b.Score * b.Clock
	if math.IsNaN(b.Index) || math.IsInf(b.Index, 0) || b.Index < 0 {
		return Breakdown{}, fmt.Errorf("%w: play %s: %v", ErrInvalidIndex, play.ID, b.Index)
	}

	c.logger.Debug(ctx, "scored play",
		logger.String("play", play.ID),
		logger.String("team", team),
		logger.Float64("field_position", b.FieldPosition),
		logger.Float64("yards_to_go", b.YardsToGo),
		logger.Float64("score", b.Score),
		logger.Float64("clock", b.Clock),
		logger.Float64("index", b.Index),
	)
	return b, nil
}

func possessingTeam(play model.PlayEvent, drive model.DriveContext) string {
	if play.Team != "" {
		return play.Team
	}
	return drive.Team
}

// FieldPosition scores the line of scrimmage. Unrecoverable field data scores 0.
func FieldPosition(s model.Spot) float64 {
	if s.IsMidfield() {
		return midfieldScore
	}
	line, err := s.SideYardLine()
	if err != nil {
		return 0
	}
	if !s.InOpponentTerritory() {
		return math.Max(1, math.Pow(1.1, float64(line-ownTerritoryFlatLine)))
	}
	return math.Pow(1.2, float64(model.Midfield-line)) * midfieldScore
}

// YardsToGo is a non-increasing step function of the distance to a first down.
func YardsToGo(distance int) float64 {
	switch {
	case distance >= 10:
		return 0.2
	case distance >= 7:
		return 0.4
	case distance >= 4:
		return 0.6
	case distance >= 2:
		return 0.8
	default:
		return 1
	}
}

// ScoreMultiplier maps the possessing team's lead before the punt.
func ScoreMultiplier(diff int) float64 {
	switch {
	case diff > 0:
		return 1
	case diff == 0:
		return 2
	case diff < bigDeficit:
		return 3
	default:
		return 4
	}
}

// ClockMultiplier grows cubically with time elapsed since halftime when the
// possessing team is not leading in the second half or overtime.
func ClockMultiplier(play model.PlayEvent, diff int, postseason bool) (float64, error) {
	if diff > 0 || play.Period <= halftimePeriod {
		return 1, nil
	}
	secs, err := SecondsSinceHalftime(play, postseason)
	if err != nil {
		return 0, err
	}
	return math.Pow(float64(secs)*clockScale, clockExponent) + 1, nil
}

// SecondsSinceHalftime counts game seconds elapsed after the second period.
// Regular season overtime is 10 minutes; every other period lasts 15.
func SecondsSinceHalftime(play model.PlayEvent, postseason bool) (int, error) {
	remaining, err := play.ClockSeconds()
	if err != nil {
		return 0, err
	}
	length := periodSeconds
	if !postseason && play.Period == regulationPeriods+1 {
		length = regularSeasonOTSecs
	}
	elapsed := length - remaining + periodSeconds*(play.Period-halftimePeriod-1)
	return max(elapsed, 0), nil
}
