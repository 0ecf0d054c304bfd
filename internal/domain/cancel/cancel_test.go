package cancel_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/surrender/internal/domain/cancel"
	"github.com/okian/surrender/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakePublisher struct {
	mu       sync.Mutex
	calls    []string
	tally    cancel.Tally
	tallyErr error
	pollErr  error
	quoteErr error
	next     int
}

func (f *fakePublisher) record(s string) model.Publication {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
	f.next++
	return model.Publication{ID: fmt.Sprintf("pub-%d", f.next)}
}

func (f *fakePublisher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePublisher) Post(_ context.Context, feed model.Feed, text string) (model.Publication, error) {
	p := f.record("post " + string(feed) + " " + text)
	p.Feed = feed
	p.Text = text
	return p, nil
}

func (f *fakePublisher) PostPoll(_ context.Context, feed model.Feed, replyTo model.Publication, text string, options []string, d time.Duration) (model.Publication, error) {
	if f.pollErr != nil {
		return model.Publication{}, f.pollErr
	}
	p := f.record(fmt.Sprintf("poll %s %s %s %v %s", feed, replyTo.ID, text, options, d))
	p.Feed = feed
	return p, nil
}

func (f *fakePublisher) Quote(_ context.Context, feed model.Feed, text string, quoted model.Publication) (model.Publication, error) {
	if f.quoteErr != nil {
		return model.Publication{}, f.quoteErr
	}
	return f.record("quote " + string(feed) + " " + text + " " + quoted.ID), nil
}

func (f *fakePublisher) Delete(_ context.Context, pub model.Publication) error {
	f.record("delete " + pub.ID)
	return nil
}

func (f *fakePublisher) ReadPollTally(_ context.Context, _ model.Publication) (cancel.Tally, error) {
	if f.tallyErr != nil {
		return cancel.Tally{}, f.tallyErr
	}
	return f.tally, nil
}

// panickyPublisher blows up while reading the tally.
type panickyPublisher struct {
	*fakePublisher
}

func (panickyPublisher) ReadPollTally(context.Context, model.Publication) (cancel.Tally, error) {
	var counts map[string]int
	counts["yes"]++
	return cancel.Tally{}, nil
}

type sleeps struct {
	mu sync.Mutex
	d  []time.Duration
}

func (s *sleeps) sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d = append(s.d, d)
}

func target() model.Publication {
	return model.Publication{ID: "notable-1", Feed: model.FeedNotable, Text: "full text"}
}

func TestConfirms(t *testing.T) {
	Convey("Given the default threshold", t, func() {
		So(cancel.Confirms(cancel.Tally{Yes: 66.67}, cancel.DefaultThreshold), ShouldBeTrue)
		So(cancel.Confirms(cancel.Tally{Yes: 66.66}, cancel.DefaultThreshold), ShouldBeFalse)
		So(cancel.Confirms(cancel.Tally{Yes: 100}, cancel.DefaultThreshold), ShouldBeTrue)
	})
}

func TestCase_To(t *testing.T) {
	Convey("Given a new case", t, func() {
		c := cancel.NewCase(target(), "full text", time.Unix(0, 0))

		So(c.ID, ShouldNotBeEmpty)
		So(c.State, ShouldEqual, cancel.StatePosted)

		Convey("When skipping the poll", func() {
			err := c.To(cancel.StateConfirmed)

			Convey("Then the transition is rejected", func() {
				So(errors.Is(err, cancel.ErrInvalidTransition), ShouldBeTrue)
				So(c.State, ShouldEqual, cancel.StatePosted)
			})
		})

		Convey("When the case has terminated", func() {
			So(c.To(cancel.StateAwaitingVerification), ShouldBeNil)
			So(c.To(cancel.StateKept), ShouldBeNil)

			Convey("Then nothing leaves the terminal state", func() {
				So(c.State.Terminal(), ShouldBeTrue)
				So(errors.Is(c.To(cancel.StateConfirmed), cancel.ErrInvalidTransition), ShouldBeTrue)
				c.Fail(errors.New("late"))
				So(c.State, ShouldEqual, cancel.StateKept)
				So(c.History, ShouldResemble, []cancel.State{cancel.StatePosted, cancel.StateAwaitingVerification, cancel.StateKept})
			})
		})
	})
}

func TestWorkflow_Run(t *testing.T) {
	Convey("Given a workflow over a fake publisher", t, func() {
		pub := &fakePublisher{}
		s := &sleeps{}
		wf := cancel.NewWorkflow(pub, cancel.WithSleep(s.sleep))
		ctx := context.Background()

		Convey("When the vote reaches the threshold", func() {
			pub.tally = cancel.Tally{Yes: 66.67, No: 33.33}
			c := cancel.NewCase(target(), "full text", time.Now())

			state := wf.Run(ctx, c)

			Convey("Then the post is retracted in order", func() {
				So(state, ShouldEqual, cancel.StateRetracted)
				So(pub.Calls(), ShouldResemble, []string{
					"poll cancel notable-1 Should this punt's Surrender Index be canceled? [Yes No] 1h0m0s",
					"delete notable-1",
					"post cancel full text",
					"quote notable CANCELED pub-3",
				})
				So(s.d, ShouldResemble, []time.Duration{61 * time.Minute, 10 * time.Second})
				So(c.History, ShouldResemble, []cancel.State{
					cancel.StatePosted, cancel.StateAwaitingVerification, cancel.StateConfirmed, cancel.StateRetracted,
				})
			})
		})

		Convey("When the vote falls just short", func() {
			pub.tally = cancel.Tally{Yes: 66.66, No: 33.34}
			c := cancel.NewCase(target(), "full text", time.Now())

			Convey("Then the post is kept", func() {
				So(wf.Run(ctx, c), ShouldEqual, cancel.StateKept)
				So(pub.Calls(), ShouldHaveLength, 1)
				So(c.Tally.Yes, ShouldEqual, 66.66)
			})
		})

		Convey("When the tally cannot be read", func() {
			pub.tallyErr = fmt.Errorf("poll closed: %w", cancel.ErrTallyUnavailable)
			c := cancel.NewCase(target(), "full text", time.Now())

			Convey("Then the case ends in ERROR without retracting", func() {
				So(wf.Run(ctx, c), ShouldEqual, cancel.StateError)
				So(errors.Is(c.Err, cancel.ErrTallyUnavailable), ShouldBeTrue)
				So(pub.Calls(), ShouldHaveLength, 1)
			})
		})

		Convey("When the poll cannot be posted", func() {
			pub.pollErr = errors.New("rate limited")
			c := cancel.NewCase(target(), "full text", time.Now())

			So(wf.Run(ctx, c), ShouldEqual, cancel.StateError)
			So(s.d, ShouldBeEmpty)
		})

		Convey("When the final quote fails", func() {
			pub.tally = cancel.Tally{Yes: 90}
			pub.quoteErr = errors.New("boom")
			c := cancel.NewCase(target(), "full text", time.Now())

			So(wf.Run(ctx, c), ShouldEqual, cancel.StateError)
			So(c.History[len(c.History)-2], ShouldEqual, cancel.StateConfirmed)
		})

		Convey("When the caller context is already canceled", func() {
			pub.tally = cancel.Tally{Yes: 10}
			cctx, stop := context.WithCancel(ctx)
			stop()
			c := cancel.NewCase(target(), "full text", time.Now())

			Convey("Then the case still runs to completion", func() {
				So(wf.Run(cctx, c), ShouldEqual, cancel.StateKept)
			})
		})
	})

	Convey("Given custom workflow options", t, func() {
		pub := &fakePublisher{tally: cancel.Tally{Yes: 51}}
		s := &sleeps{}
		wf := cancel.NewWorkflow(pub,
			cancel.WithSleep(s.sleep),
			cancel.WithThreshold(50),
			cancel.WithVerifyDelay(time.Minute),
			cancel.WithRetractPause(0),
			cancel.WithPollDuration(30*time.Minute),
			cancel.WithThreshold(-1),
		)

		So(wf.Run(context.Background(), cancel.NewCase(target(), "t", time.Now())), ShouldEqual, cancel.StateRetracted)
		So(s.d, ShouldResemble, []time.Duration{time.Minute, 0})
		So(pub.Calls()[0], ShouldEndWith, "30m0s")
	})
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Cancellation(_ context.Context, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func TestLauncher(t *testing.T) {
	Convey("Given a launcher", t, func() {
		pub := &fakePublisher{tallyErr: cancel.ErrTallyUnavailable}
		s := &sleeps{}
		n := &recordingNotifier{}
		var mu sync.Mutex
		var done []*cancel.Case
		la := cancel.NewLauncher(cancel.NewWorkflow(pub, cancel.WithSleep(s.sleep)), n,
			cancel.WithOnDone(func(c *cancel.Case) {
				mu.Lock()
				defer mu.Unlock()
				done = append(done, c)
			}))

		Convey("When a case fails", func() {
			id, err := la.Start(context.Background(), target(), "full text")
			So(err, ShouldBeNil)
			la.Wait()

			Convey("Then the operator is told", func() {
				So(done, ShouldHaveLength, 1)
				So(done[0].ID, ShouldEqual, id)
				So(done[0].State, ShouldEqual, cancel.StateError)
				So(n.msgs, ShouldHaveLength, 1)
				So(n.msgs[0], ShouldContainSubstring, "notable-1")
			})
		})

		Convey("When a publisher step panics", func() {
			var mu2 sync.Mutex
			var panicked []*cancel.Case
			crashy := cancel.NewLauncher(
				cancel.NewWorkflow(panickyPublisher{&fakePublisher{}}, cancel.WithSleep(s.sleep)), n,
				cancel.WithOnDone(func(c *cancel.Case) {
					mu2.Lock()
					defer mu2.Unlock()
					panicked = append(panicked, c)
				}))

			_, err := crashy.Start(context.Background(), target(), "full text")
			So(err, ShouldBeNil)
			_, err = la.Start(context.Background(), target(), "other text")
			So(err, ShouldBeNil)
			crashy.Wait()
			la.Wait()

			Convey("Then only that case ends in ERROR and the operator is told", func() {
				So(panicked, ShouldHaveLength, 1)
				So(panicked[0].State, ShouldEqual, cancel.StateError)
				So(errors.Is(panicked[0].Err, cancel.ErrCasePanic), ShouldBeTrue)
				So(panicked[0].Err.Error(), ShouldContainSubstring, "nil map")
				So(done, ShouldHaveLength, 1)
				So(n.msgs, ShouldHaveLength, 2)
			})
		})
	})
}
