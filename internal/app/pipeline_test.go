package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/surrender/internal/adapters/repository"
	"github.com/okian/surrender/internal/adapters/social"
	service "github.com/okian/surrender/internal/app"
	"github.com/okian/surrender/internal/domain/decision"
	"github.com/okian/surrender/internal/domain/dedupe"
	"github.com/okian/surrender/internal/domain/model"
	"github.com/okian/surrender/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

type faults struct {
	mu    sync.Mutex
	what  []string
	errs  []error
	beats int
}

func (f *faults) Heartbeat(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beats++
}

func (f *faults) Fault(_ context.Context, what string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.what = append(f.what, what)
	f.errs = append(f.errs, err)
}

func (f *faults) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.what)
}

type starter struct {
	targets []model.Publication
}

func (s *starter) Start(_ context.Context, target model.Publication, _ string) (string, error) {
	s.targets = append(s.targets, target)
	return "case-" + target.ID, nil
}

type failingPub struct {
	*social.DryRun
}

func (failingPub) Post(context.Context, model.Feed, string) (model.Publication, error) {
	return model.Publication{}, errors.New("rate limited")
}

// flakyRanks fails the first persisting call.
type flakyRanks struct {
	repository.RankStore
	failed bool
}

func (f *flakyRanks) Rank(ctx context.Context, score float64, persist bool) (repository.Percentiles, error) {
	if persist && !f.failed {
		f.failed = true
		return repository.Percentiles{}, errors.New("disk full")
	}
	return f.RankStore.Rank(ctx, score, persist)
}

func spot(line int, side string, down, dist int, dd string) model.Spot {
	return model.Spot{
		YardLine:         line,
		PossessionText:   side,
		YardsToEndzone:   100 - line,
		Distance:         dist,
		Down:             down,
		DownDistanceText: dd,
	}
}

func puntDrive(id, clock string) model.DriveContext {
	prev := model.PlayEvent{
		ID: id + "-1", Team: "KC", Period: 4, Clock: "2:40",
		Start: spot(35, "KC 35", 3, 3, "3rd & 3"), HomeScore: 17, AwayScore: 20, Type: "Rush",
	}
	punt := model.PlayEvent{
		ID: id + "-2", Team: "KC", Period: 4, Clock: clock,
		Start: spot(35, "KC 35", 4, 3, "4th & 3"), HomeScore: 17, AwayScore: 20, Type: "Punt",
	}
	return model.DriveContext{ID: id, Team: "KC", Result: "Punt", Plays: []model.PlayEvent{prev, punt}}
}

func gameWith(drives ...model.DriveContext) model.GameContext {
	return model.GameContext{ID: "g1", HomeTeam: "KC", AwayTeam: "BUF", Drives: drives}
}

type fixture struct {
	pipeline  *service.Pipeline
	ranks     *repository.FileRankStore
	published *repository.PublishedIndex
	pub       *social.DryRun
	notes     *faults
	starter   *starter
}

func newFixture(t *testing.T, edit func(*service.Deps)) *fixture {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()
	ranks, err := repository.OpenRankStore(ctx, "", filepath.Join(dir, "current.json"))
	So(err, ShouldBeNil)
	published, err := repository.OpenPublishedIndex(ctx, filepath.Join(dir, "published.json"))
	So(err, ShouldBeNil)

	f := &fixture{
		ranks:     ranks,
		published: published,
		pub:       social.NewDryRun(),
		notes:     &faults{},
		starter:   &starter{},
	}
	d := service.Deps{
		Scorer:    scoring.NewCalculator(),
		Resolver:  dedupe.NewInMemoryResolver(),
		Ranks:     ranks,
		Published: published,
		Engine:    decision.NewEngine(),
		Publisher: f.pub,
		Starter:   f.starter,
		Notifier:  f.notes,
		Now:       func() time.Time { return time.Date(2024, 11, 3, 20, 0, 0, 0, time.UTC) },
	}
	if edit != nil {
		edit(&d)
	}
	f.pipeline = service.NewPipeline(d)
	return f
}

func ops(pub *social.DryRun) []string {
	var out []string
	for _, a := range pub.Actions() {
		out = append(out, a.Op+":"+string(a.Feed))
	}
	return out
}

func TestPipeline_Process(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pipeline over an empty season", t, func() {
		f := newFixture(t, nil)

		Convey("When a game with one punt is processed", func() {
			n := f.pipeline.Process(ctx, gameWith(puntDrive("d1", "2:10")))

			Convey("Then the punt is published to both feeds", func() {
				So(n, ShouldEqual, 1)
				So(ops(f.pub), ShouldResemble, []string{"post:main", "post:notable"})
				So(f.pub.Actions()[0].Text, ShouldStartWith, "KC decided to punt to BUF from the KC 35 on 4th & 3 with 2:10 remaining in the 4th")
				So(f.pub.Actions()[0].Text, ShouldContainSubstring, "of the 2024 season")
			})

			Convey("Then the score is persisted and the play recorded", func() {
				current, _ := f.ranks.Sizes()
				So(current, ShouldEqual, 1)
				So(f.published.Len(), ShouldEqual, 1)
			})

			Convey("Then a cancellation case opens for the notable post", func() {
				So(f.starter.targets, ShouldHaveLength, 1)
				So(f.starter.targets[0].Feed, ShouldEqual, model.FeedNotable)
			})

			Convey("And it is processed again", func() {
				n := f.pipeline.Process(ctx, gameWith(puntDrive("d1", "2:10")))

				So(n, ShouldEqual, 0)
				So(f.pub.Actions(), ShouldHaveLength, 2)
				current, _ := f.ranks.Sizes()
				So(current, ShouldEqual, 1)
			})

			Convey("And it is redelivered with a corrected clock", func() {
				n := f.pipeline.Process(ctx, gameWith(puntDrive("d1", "1:45")))

				So(n, ShouldEqual, 0)
				So(f.pub.Actions(), ShouldHaveLength, 2)
			})

			Convey("And a later punt in the same period arrives", func() {
				n := f.pipeline.Process(ctx, gameWith(puntDrive("d1", "2:10"), puntDrive("d2", "0:30")))

				So(n, ShouldEqual, 1)
				current, _ := f.ranks.Sizes()
				So(current, ShouldEqual, 2)
			})
		})

		Convey("When the punt clock cannot be parsed", func() {
			n := f.pipeline.Process(ctx, gameWith(puntDrive("d1", "two minutes")))
			f.pipeline.Process(ctx, gameWith(puntDrive("d1", "two minutes")))

			Convey("Then it is dropped and reported once", func() {
				So(n, ShouldEqual, 0)
				So(f.pub.Actions(), ShouldBeEmpty)
				So(f.notes.count(), ShouldEqual, 1)
			})
		})

		Convey("When a drive did not end in a punt", func() {
			d := puntDrive("d1", "2:10")
			d.Result = "Touchdown"

			So(f.pipeline.Process(ctx, gameWith(d)), ShouldEqual, 0)
			So(f.pub.Actions(), ShouldBeEmpty)
		})
	})

	Convey("Given a punt after a delay of game penalty", t, func() {
		f := newFixture(t, nil)
		d := puntDrive("d1", "2:10")
		d.Plays[0] = model.PlayEvent{
			ID: "d1-1", Team: "KC", Period: 4, Clock: "2:10",
			Start: spot(40, "KC 40", 4, 3, "4th & 3"), HomeScore: 17, AwayScore: 20,
			Type: "Penalty", Text: "PENALTY on KC, Delay of Game, 5 yards, enforced at KC 40.",
		}
		d.Plays[1].Start = spot(35, "KC 35", 4, 8, "4th & 8")

		n := f.pipeline.Process(ctx, gameWith(d))

		Convey("Then the note is threaded under both posts", func() {
			So(n, ShouldEqual, 1)
			So(ops(f.pub), ShouldResemble, []string{"post:main", "reply:main", "post:notable", "reply:notable"})
			So(f.pub.Actions()[1].Text, ShouldStartWith, "*KC committed a (likely intentional) delay of game penalty")
		})

		Convey("Then only the actual index is persisted", func() {
			current, _ := f.ranks.Sizes()
			So(current, ShouldEqual, 1)
		})
	})

	Convey("Given a publisher that rejects posts", t, func() {
		f := newFixture(t, func(d *service.Deps) {
			d.Publisher = failingPub{social.NewDryRun()}
		})

		n := f.pipeline.Process(ctx, gameWith(puntDrive("d1", "2:10")))
		again := f.pipeline.Process(ctx, gameWith(puntDrive("d1", "2:10")))

		Convey("Then the scored play is seen but never re-scored", func() {
			So(n, ShouldEqual, 0)
			So(again, ShouldEqual, 0)
			current, _ := f.ranks.Sizes()
			So(current, ShouldEqual, 1)
			So(f.published.Len(), ShouldEqual, 0)
			So(f.notes.count(), ShouldEqual, 1)
		})
	})

	Convey("Given a rank store that fails once", t, func() {
		var flaky *flakyRanks
		f := newFixture(t, func(d *service.Deps) {
			flaky = &flakyRanks{RankStore: d.Ranks}
			d.Ranks = flaky
		})

		first := f.pipeline.Process(ctx, gameWith(puntDrive("d1", "2:10")))
		second := f.pipeline.Process(ctx, gameWith(puntDrive("d1", "2:10")))

		Convey("Then the play is retried on the next poll", func() {
			So(first, ShouldEqual, 0)
			So(second, ShouldEqual, 1)
			current, _ := f.ranks.Sizes()
			So(current, ShouldEqual, 1)
		})
	})

	Convey("Given cancellation is disabled", t, func() {
		f := newFixture(t, func(d *service.Deps) { d.Starter = nil })

		So(f.pipeline.Process(ctx, gameWith(puntDrive("d1", "2:10"))), ShouldEqual, 1)
		So(ops(f.pub), ShouldResemble, []string{"post:main", "post:notable"})
	})
}
