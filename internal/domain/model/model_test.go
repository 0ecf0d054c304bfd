package model_test

import (
	"errors"
	"testing"

	"github.com/okian/surrender/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestSpot(t *testing.T) {
	convey.Convey("Given line of scrimmage spots", t, func() {
		convey.Convey("When the ball is on the 50", func() {
			s := model.Spot{YardLine: 50, PossessionText: "50", YardsToEndzone: 50}
			n, err := s.SideYardLine()

			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, 50)
			convey.So(s.IsMidfield(), convey.ShouldBeTrue)
			convey.So(s.InOpponentTerritory(), convey.ShouldBeFalse)
		})

		convey.Convey("When the ball is in opponent territory", func() {
			s := model.Spot{YardLine: 65, PossessionText: "BUF 35", YardsToEndzone: 35}
			n, err := s.SideYardLine()

			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, 35)
			convey.So(s.InOpponentTerritory(), convey.ShouldBeTrue)
		})

		convey.Convey("When the possession text is garbage", func() {
			for _, text := range []string{"", "KC", "KC thirty", "KC 61"} {
				_, err := model.Spot{YardLine: 20, PossessionText: text}.SideYardLine()
				convey.So(errors.Is(err, model.ErrMalformedFieldPosition), convey.ShouldBeTrue)
			}
		})
	})
}

func TestParseClock(t *testing.T) {
	convey.Convey("Given game clock strings", t, func() {
		s, err := model.ParseClock("12:34")
		convey.So(err, convey.ShouldBeNil)
		convey.So(s, convey.ShouldEqual, 754)

		s, err = model.ParseClock("0:07")
		convey.So(err, convey.ShouldBeNil)
		convey.So(s, convey.ShouldEqual, 7)

		convey.Convey("Then malformed clocks are rejected", func() {
			for _, clock := range []string{"", "12", "ab:cd", "1:75", "-1:00"} {
				_, err := model.ParseClock(clock)
				convey.So(errors.Is(err, model.ErrMalformedClock), convey.ShouldBeTrue)
			}
		})
	})
}

func TestDrivePunt(t *testing.T) {
	convey.Convey("Given a drive that ended in a punt", t, func() {
		drive := model.DriveContext{
			ID:     "4015474171",
			Team:   "KC",
			Result: "PUNT",
			Plays: []model.PlayEvent{
				{ID: "1", Type: "Rush"},
				{ID: "2", Type: "Pass Incompletion"},
				{ID: "3", Type: "Punt"},
				{ID: "4", Type: "Penalty"},
			},
		}

		convey.Convey("When locating the punt", func() {
			punt, ctx, ok := drive.Punt()

			convey.Convey("Then the last punt-typed play wins and its predecessor is kept", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(punt.ID, convey.ShouldEqual, "3")
				convey.So(ctx.Previous.ID, convey.ShouldEqual, "2")
			})
		})

		convey.Convey("When no play is labeled as a punt", func() {
			drive.Plays[2].Type = "Kickoff Return"
			punt, ctx, ok := drive.Punt()

			convey.So(ok, convey.ShouldBeTrue)
			convey.So(punt.ID, convey.ShouldEqual, "4")
			convey.So(ctx.Previous.ID, convey.ShouldEqual, "3")
		})

		convey.Convey("When only the first play is labeled as a punt", func() {
			drive.Plays = []model.PlayEvent{{ID: "1", Type: "Punt"}, {ID: "2", Type: "Timeout"}}
			punt, _, ok := drive.Punt()

			convey.So(ok, convey.ShouldBeTrue)
			convey.So(punt.ID, convey.ShouldEqual, "2")
		})

		convey.Convey("When the drive is too short", func() {
			drive.Plays = drive.Plays[:1]
			_, _, ok := drive.Punt()
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("When the drive ended in a touchdown", func() {
			drive.Result = "TD"
			_, _, ok := drive.Punt()
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestGameContext(t *testing.T) {
	convey.Convey("Given a game between KC and BUF", t, func() {
		game := model.GameContext{HomeTeam: "KC", AwayTeam: "BUF"}
		play := model.PlayEvent{HomeScore: 17, AwayScore: 20}

		convey.So(game.Opponent("KC"), convey.ShouldEqual, "BUF")
		convey.So(game.Opponent("BUF"), convey.ShouldEqual, "KC")
		convey.So(game.Differential("KC", play), convey.ShouldEqual, -3)
		convey.So(game.Differential("BUF", play), convey.ShouldEqual, 3)

		own, other := game.ScoreFor("BUF", play)
		convey.So(own, convey.ShouldEqual, 20)
		convey.So(other, convey.ShouldEqual, 17)
	})
}

func TestPlayClassification(t *testing.T) {
	convey.Convey("Given play descriptions", t, func() {
		convey.So(model.PlayEvent{Type: "Punt"}.IsPunt(), convey.ShouldBeTrue)
		convey.So(model.PlayEvent{Type: "Blocked Punt"}.IsPunt(), convey.ShouldBeTrue)
		convey.So(model.PlayEvent{Type: "Field Goal Good"}.IsPunt(), convey.ShouldBeFalse)
		convey.So(model.PlayEvent{Text: "PENALTY on KC, Delay of Game, 5 yards"}.IsDelayOfGame(), convey.ShouldBeTrue)

		p := model.PlayEvent{ID: "9", Start: model.Spot{Distance: 4}}
		q := p.WithStart(model.Spot{Distance: 9})
		convey.So(p.Start.Distance, convey.ShouldEqual, 4)
		convey.So(q.Start.Distance, convey.ShouldEqual, 9)
		convey.So(q.ID, convey.ShouldEqual, "9")
	})
}
