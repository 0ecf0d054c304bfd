package scoring_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/surrender/internal/domain/model"
	scoring "github.com/okian/surrender/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

const epsilon = 1e-9

func punt(team, clock string, period int, spot model.Spot) model.PlayEvent {
	return model.PlayEvent{ID: "punt", Team: team, Period: period, Clock: clock, Start: spot, Type: "Punt"}
}

func scoreLine(home, away int) model.PlayEvent {
	return model.PlayEvent{ID: "prev", HomeScore: home, AwayScore: away}
}

func TestFieldPosition(t *testing.T) {
	Convey("Given line of scrimmage spots", t, func() {
		mid := math.Pow(1.1, 10)

		Convey("When the ball is exactly at midfield", func() {
			So(scoring.FieldPosition(model.Spot{YardLine: 50, PossessionText: "50", YardsToEndzone: 50}), ShouldAlmostEqual, mid, epsilon)
		})

		Convey("When approaching midfield from either side", func() {
			own49 := scoring.FieldPosition(model.Spot{YardLine: 49, PossessionText: "KC 49", YardsToEndzone: 51})
			opp49 := scoring.FieldPosition(model.Spot{YardLine: 51, PossessionText: "BUF 49", YardsToEndzone: 49})

			Convey("Then both branches meet the midfield constant", func() {
				So(own49, ShouldAlmostEqual, math.Pow(1.1, 9), epsilon)
				So(opp49, ShouldAlmostEqual, 1.2*mid, epsilon)
				So(own49, ShouldBeLessThan, mid)
				So(opp49, ShouldBeGreaterThan, mid)
				So(math.Max(1, math.Pow(1.1, 50-40)), ShouldAlmostEqual, math.Pow(1.2, 0)*mid, epsilon)
			})
		})

		Convey("When the punt is deep in own territory", func() {
			So(scoring.FieldPosition(model.Spot{YardLine: 20, PossessionText: "KC 20", YardsToEndzone: 80}), ShouldEqual, 1)
			So(scoring.FieldPosition(model.Spot{YardLine: 40, PossessionText: "KC 40", YardsToEndzone: 60}), ShouldEqual, 1)
			So(scoring.FieldPosition(model.Spot{YardLine: 45, PossessionText: "KC 45", YardsToEndzone: 55}), ShouldAlmostEqual, math.Pow(1.1, 5), epsilon)
		})

		Convey("When the punt is in opponent territory", func() {
			So(scoring.FieldPosition(model.Spot{YardLine: 65, PossessionText: "BUF 35", YardsToEndzone: 35}), ShouldAlmostEqual, math.Pow(1.2, 15)*mid, epsilon)
		})

		Convey("When the field data is malformed", func() {
			So(scoring.FieldPosition(model.Spot{YardLine: 30, PossessionText: ""}), ShouldEqual, 0)
			So(scoring.FieldPosition(model.Spot{YardLine: 30, PossessionText: "KC ??"}), ShouldEqual, 0)
		})
	})
}

func TestYardsToGo(t *testing.T) {
	Convey("Given distances to a first down", t, func() {
		cases := map[int]float64{20: 0.2, 10: 0.2, 9: 0.4, 7: 0.4, 6: 0.6, 4: 0.6, 3: 0.8, 2: 0.8, 1: 1, 0: 1}
		for distance, want := range cases {
			So(scoring.YardsToGo(distance), ShouldEqual, want)
		}

		Convey("Then the multiplier never increases with distance", func() {
			prev := scoring.YardsToGo(0)
			for d := 1; d <= 30; d++ {
				So(scoring.YardsToGo(d), ShouldBeLessThanOrEqualTo, prev)
				prev = scoring.YardsToGo(d)
			}
		})
	})
}

func TestScoreMultiplier(t *testing.T) {
	Convey("Given score differentials", t, func() {
		So(scoring.ScoreMultiplier(7), ShouldEqual, 1)
		So(scoring.ScoreMultiplier(0), ShouldEqual, 2)
		So(scoring.ScoreMultiplier(-9), ShouldEqual, 3)
		So(scoring.ScoreMultiplier(-8), ShouldEqual, 4)
		So(scoring.ScoreMultiplier(-1), ShouldEqual, 4)
	})
}

func TestClockMultiplier(t *testing.T) {
	Convey("Given punts by a trailing team", t, func() {
		Convey("When in the first half", func() {
			m, err := scoring.ClockMultiplier(punt("KC", "0:30", 2, model.Spot{}), -3, false)
			So(err, ShouldBeNil)
			So(m, ShouldEqual, 1)
		})

		Convey("When at the start of the third period", func() {
			m, err := scoring.ClockMultiplier(punt("KC", "15:00", 3, model.Spot{}), -3, false)
			So(err, ShouldBeNil)
			So(m, ShouldEqual, 1)
		})

		Convey("When late in the fourth period", func() {
			m, err := scoring.ClockMultiplier(punt("KC", "2:00", 4, model.Spot{}), 0, false)
			So(err, ShouldBeNil)
			So(m, ShouldAlmostEqual, math.Pow(1.68, 3)+1, epsilon)
		})

		Convey("When in overtime", func() {
			regular, err := scoring.SecondsSinceHalftime(punt("KC", "5:00", 5, model.Spot{}), false)
			So(err, ShouldBeNil)
			So(regular, ShouldEqual, 2100)

			post, err := scoring.SecondsSinceHalftime(punt("KC", "5:00", 5, model.Spot{}), true)
			So(err, ShouldBeNil)
			So(post, ShouldEqual, 2400)

			double, err := scoring.SecondsSinceHalftime(punt("KC", "15:00", 6, model.Spot{}), true)
			So(err, ShouldBeNil)
			So(double, ShouldEqual, 2700)
		})

		Convey("When the team is leading the clock is ignored", func() {
			m, err := scoring.ClockMultiplier(punt("KC", "not a clock", 4, model.Spot{}), 3, false)
			So(err, ShouldBeNil)
			So(m, ShouldEqual, 1)
		})

		Convey("When the clock is malformed", func() {
			_, err := scoring.ClockMultiplier(punt("KC", "not a clock", 4, model.Spot{}), -3, false)
			So(errors.Is(err, model.ErrMalformedClock), ShouldBeTrue)
		})
	})
}

func TestCalculator_Score(t *testing.T) {
	Convey("Given a calculator and a KC home game trailing BUF by 3", t, func() {
		calc := scoring.NewCalculator()
		ctx := context.Background()
		game := model.GameContext{ID: "401547417", HomeTeam: "KC", AwayTeam: "BUF"}
		drive := model.DriveContext{ID: "d1", Team: "KC", Result: "Punt", Previous: scoreLine(17, 20)}

		Convey("When the punt play itself carries a later score", func() {
			p := punt("KC", "8:00", 1, model.Spot{YardLine: 20, PossessionText: "KC 20", YardsToEndzone: 80, Distance: 5})
			p.HomeScore, p.AwayScore = 17, 27

			res, err := calc.Score(ctx, p, drive, game)

			Convey("Then the previous play's differential decides the score multiplier", func() {
				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 4)
			})
		})

		Convey("When comparing an opponent-35 punt on 4th and 10 with an own-20 punt on 4th and 2 in the final two minutes", func() {
			deep := punt("KC", "10:00", 4, model.Spot{YardLine: 65, PossessionText: "BUF 35", YardsToEndzone: 35, Distance: 10})
			late := punt("KC", "1:30", 4, model.Spot{YardLine: 20, PossessionText: "KC 20", YardsToEndzone: 80, Distance: 2})

			a, errA := calc.Score(ctx, deep, drive, game)
			b, errB := calc.Score(ctx, late, drive, game)

			Convey("Then each index is the product of its sub-scores", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a.Index, ShouldAlmostEqual, math.Pow(1.2, 15)*math.Pow(1.1, 10)*0.2*4*(math.Pow(1.2, 3)+1), 1e-6)
				So(b.Index, ShouldAlmostEqual, 1*0.8*4*(math.Pow(1.71, 3)+1), 1e-6)
			})

			Convey("Then the late clock term grows the own-20 punt but field position still dominates", func() {
				So(b.Clock, ShouldBeGreaterThan, a.Clock)
				So(a.FieldPosition/b.FieldPosition, ShouldBeGreaterThan, b.Clock/a.Clock)
				So(a.Index, ShouldBeGreaterThan, b.Index)
			})
		})

		Convey("When the previous play was a delay of game that added distance", func() {
			drive.Previous = model.PlayEvent{
				ID:        "penalty",
				HomeScore: 17, AwayScore: 20,
				Text:  "PENALTY on KC-P.Mahomes, Delay of Game, 5 yards, enforced at BUF 38 - No Play.",
				Start: model.Spot{YardLine: 62, PossessionText: "BUF 38", YardsToEndzone: 38, Distance: 5, Down: 4},
			}
			p := punt("KC", "6:12", 3, model.Spot{YardLine: 57, PossessionText: "BUF 43", YardsToEndzone: 43, Distance: 10, Down: 4})

			res, err := calc.Score(ctx, p, drive, game)

			Convey("Then two distinct indices are exposed", func() {
				So(err, ShouldBeNil)
				So(res.DelayOfGame, ShouldBeTrue)
				So(res.Index, ShouldNotAlmostEqual, res.AsIfUnintentional.Index)
			})

			Convey("Then the ranked index uses the penalized, more conservative spot", func() {
				So(res.FieldPosition, ShouldAlmostEqual, math.Pow(1.2, 7)*math.Pow(1.1, 10), epsilon)
				So(res.AsIfUnintentional.FieldPosition, ShouldAlmostEqual, math.Pow(1.2, 12)*math.Pow(1.1, 10), epsilon)
				So(res.Index, ShouldBeLessThan, res.AsIfUnintentional.Index)
			})

			Convey("Then the computation is deterministic", func() {
				again, err := calc.Score(ctx, p, drive, game)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, res)
			})
		})

		Convey("When the previous play was a delay of game against the defense", func() {
			drive.Previous = model.PlayEvent{
				ID: "penalty", HomeScore: 17, AwayScore: 20,
				Text:  "PENALTY on BUF, Delay of Game, 5 yards",
				Start: model.Spot{Distance: 10},
			}
			p := punt("KC", "6:12", 3, model.Spot{YardLine: 30, PossessionText: "KC 30", YardsToEndzone: 70, Distance: 5})

			res, err := calc.Score(ctx, p, drive, game)

			So(err, ShouldBeNil)
			So(res.DelayOfGame, ShouldBeFalse)
		})

		Convey("When the clock is malformed on a trailing second-half punt", func() {
			p := punt("KC", "??", 3, model.Spot{YardLine: 30, PossessionText: "KC 30", YardsToEndzone: 70, Distance: 5})
			_, err := calc.Score(ctx, p, drive, game)

			So(errors.Is(err, model.ErrMalformedClock), ShouldBeTrue)
		})

		Convey("When the field position is malformed", func() {
			p := punt("KC", "6:00", 3, model.Spot{YardLine: 30, PossessionText: "", Distance: 5})
			res, err := calc.Score(ctx, p, drive, game)

			Convey("Then the index degrades to zero without failing", func() {
				So(err, ShouldBeNil)
				So(res.Index, ShouldEqual, 0)
			})
		})

		Convey("When the play carries no team the drive team is used", func() {
			p := punt("", "6:00", 1, model.Spot{YardLine: 30, PossessionText: "KC 30", YardsToEndzone: 70, Distance: 5})
			drive.Previous = scoreLine(24, 20)
			res, err := calc.Score(ctx, p, drive, game)

			So(err, ShouldBeNil)
			So(res.Score, ShouldEqual, 1)
		})
	})
}
