package waiter

import (
	"fmt"
	"regexp"

	"github.com/xkilldash9x/uiverify/api/schemas"
)

// Condition is a stateless predicate over one element's observed state. It is evaluated
// afresh on every poll tick.
type Condition struct {
	// Name describes the expectation in messages, e.g. "to be visible".
	Name string
	// Holds evaluates the predicate against a resolved element.
	Holds func(el schemas.ElementInfo) bool
	// SatisfiedByAbsence makes a target with no element count as success.
	SatisfiedByAbsence bool
}

func (c Condition) String() string {
	return c.Name
}

// Visible holds when the element is attached, rendered with a non-empty box, and not
// hidden by style.
func Visible() Condition {
	return Condition{
		Name:  "to be visible",
		Holds: func(el schemas.ElementInfo) bool { return el.Connected && el.Visible },
	}
}

// Hidden holds when the element is not visible or not present at all.
func Hidden() Condition {
	return Condition{
		Name:               "to be hidden",
		Holds:              func(el schemas.ElementInfo) bool { return !el.Connected || !el.Visible },
		SatisfiedByAbsence: true,
	}
}

// HasClass holds when the element's class attribute matches pattern, a Go regular expression
// such as `\bdark\b`.
func HasClass(pattern string) (Condition, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Condition{}, fmt.Errorf("invalid class pattern %q: %w", pattern, err)
	}
	return Condition{
		Name:  fmt.Sprintf("to have class matching /%s/", pattern),
		Holds: func(el schemas.ElementInfo) bool { return el.Connected && re.MatchString(el.ClassAttr()) },
	}, nil
}

// MustHaveClass is HasClass for patterns known at compile time.
func MustHaveClass(pattern string) Condition {
	c, err := HasClass(pattern)
	if err != nil {
		panic(err)
	}
	return c
}

// Custom wraps an arbitrary predicate.
func Custom(name string, holds func(el schemas.ElementInfo) bool) Condition {
	return Condition{Name: name, Holds: holds}
}
