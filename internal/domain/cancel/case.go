// Package cancel implements the confirm-then-retract workflow for notable posts.
//
// A case posts a Yes/No poll under the notable post, waits for the poll to
// close, reads the tally and, on a super-majority Yes, retracts the post and
// replaces it with a marked cross-reference. A fault anywhere ends the case
// in ERROR; it is never retried.
package cancel

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/surrender/internal/domain/model"
)

// State of a cancellation case.
type State string

// States.
const (
	StatePosted               State = "POSTED"
	StateAwaitingVerification State = "AWAITING_VERIFICATION"
	StateConfirmed            State = "CONFIRMED"
	StateRetracted            State = "RETRACTED"
	StateKept                 State = "KEPT"
	StateError                State = "ERROR"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	switch s {
	case StateRetracted, StateKept, StateError:
		return true
	default:
		return false
	}
}

var transitions = map[State][]State{ //nolint:gochecknoglobals // state table
	StatePosted:               {StateAwaitingVerification, StateError},
	StateAwaitingVerification: {StateConfirmed, StateKept, StateError},
	StateConfirmed:            {StateRetracted, StateError},
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Tally is the share of each poll option, in percent.
type Tally struct {
	Yes float64
	No  float64
}

// Case is one notable publication under review.
type Case struct {
	ID        string
	Target    model.Publication // the notable post
	Text      string            // full text, re-posted by the cancel account on retraction
	State     State
	Poll      model.Publication
	Tally     Tally
	Err       error
	CreatedAt time.Time
	History   []State
}

// NewCase starts a case in POSTED for target.
func NewCase(target model.Publication, text string, now time.Time) *Case {
	return NewCaseID(uuid.NewString(), target, text, now)
}

// NewCaseID is NewCase with a caller-chosen id.
func NewCaseID(id string, target model.Publication, text string, now time.Time) *Case {
	return &Case{
		ID:        id,
		Target:    target,
		Text:      text,
		State:     StatePosted,
		CreatedAt: now,
		History:   []State{StatePosted},
	}
}

// To moves the case to next, rejecting transitions the state table lacks.
func (c *Case) To(next State) error {
	if !allowed(c.State, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.State, next)
	}
	c.State = next
	c.History = append(c.History, next)
	return nil
}

// Fail moves a non-terminal case to ERROR and records err.
func (c *Case) Fail(err error) {
	if c.State.Terminal() {
		return
	}
	c.Err = err
	c.State = StateError
	c.History = append(c.History, StateError)
}
