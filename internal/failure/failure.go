// Package failure defines the error taxonomy shared by every stage of a scenario run.
// Expected failures (an element never appears, a click lands on an overlay) are values of
// *Error and are converted into a ScenarioOutcome at the scenario boundary. Anything that
// is not a *Error is treated as unexpected.
package failure

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind tags an expected failure.
type Kind string

const (
	Navigation  Kind = "NavigationFailure"
	Resolution  Kind = "ResolutionFailure"
	Ambiguity   Kind = "AmbiguityFailure"
	Timeout     Kind = "AssertionTimeout"
	Interaction Kind = "InteractionFailure"
	Capture     Kind = "CaptureFailure"
	Cancelled   Kind = "Cancelled"
	// Unexpected marks errors that did not originate in the taxonomy.
	Unexpected Kind = "UnexpectedError"
)

// Error is a tagged failure with enough context for a human to diagnose it.
type Error struct {
	Kind Kind
	// Op is the operation that failed, e.g. "navigate", "wait", "click".
	Op string
	// Target describes what the operation was aimed at (a locator, URL, or file path).
	Target string
	// Detail carries the last observed state or any other diagnostic text.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Target != "" {
		fmt.Fprintf(&b, " %s", e.Target)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: Timeout}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Target == ""
}

// New builds a tagged failure.
func New(kind Kind, op, target, detail string) *Error {
	return &Error{Kind: kind, Op: op, Target: target, Detail: detail}
}

// Wrap builds a tagged failure around a cause.
func Wrap(kind Kind, op, target string, err error) *Error {
	return &Error{Kind: kind, Op: op, Target: target, Err: err}
}

// KindOf classifies any error. Context cancellation maps to Cancelled, nil to "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Cancelled
	}
	return Unexpected
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
