package waiter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/uiverify/api/schemas"
)

// Phase says how far a timed-out wait got. Every phase is the same failure kind
// (AssertionTimeout); the phase only sharpens the message.
type Phase string

const (
	PhaseNeverAppeared Phase = "never appeared"
	PhaseAmbiguous     Phase = "ambiguous"
	PhaseWrongState    Phase = "wrong state"
	PhaseDetached      Phase = "detached"
	// PhaseUnresponsive means no check got an answer from the page before the deadline.
	PhaseUnresponsive Phase = "unresponsive"
)

// TimeoutError is the diagnostic payload of an AssertionTimeout.
type TimeoutError struct {
	Target    string
	Condition string
	Timeout   time.Duration
	Ticks     int
	Phase     Phase
	// Count is the number of elements the locator matched on the last tick.
	Count int
	// Last is the last observed element state, when one was found.
	Last schemas.ElementInfo
	// LastErr is the last transient page error, if the final tick saw one.
	LastErr error
}

func (e *TimeoutError) Error() string {
	var b strings.Builder
	switch e.Phase {
	case PhaseAmbiguous:
		fmt.Fprintf(&b, "matched %d elements instead of one for %s", e.Count, e.Timeout)
	case PhaseWrongState:
		fmt.Fprintf(&b, "appeared but never satisfied %q within %s; last state %s", e.Condition, e.Timeout, describe(&e.Last))
	case PhaseDetached:
		fmt.Fprintf(&b, "was detached from the document before satisfying %q within %s", e.Condition, e.Timeout)
	case PhaseUnresponsive:
		fmt.Fprintf(&b, "page never answered a check for %s within %s", e.Condition, e.Timeout)
	default:
		fmt.Fprintf(&b, "never appeared within %s (expected %s)", e.Timeout, e.Condition)
	}
	fmt.Fprintf(&b, " after %d checks", e.Ticks)
	if e.LastErr != nil {
		fmt.Fprintf(&b, "; last page error: %v", e.LastErr)
	}
	return b.String()
}

func (e *TimeoutError) Unwrap() error { return e.LastErr }

// AsTimeout extracts the TimeoutError from an AssertionTimeout, if err is one.
func AsTimeout(err error) (*TimeoutError, bool) {
	var te *TimeoutError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
