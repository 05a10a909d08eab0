// Package waiter implements the wait/assert engine: poll a target at a fixed short interval
// until a condition holds or the timeout elapses.
//
// Polling is deliberate. Application state changes asynchronously relative to the script, so
// every tick re-resolves the locator (or re-describes the element) against the live page.
package waiter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/failure"
	"github.com/xkilldash9x/uiverify/internal/locator"
)

const (
	// DefaultTimeout applies when a caller passes a zero timeout.
	DefaultTimeout = 5 * time.Second
	// DefaultPollInterval is the spacing between checks.
	DefaultPollInterval = 50 * time.Millisecond
	minPollInterval     = time.Millisecond
)

// Target is what a wait observes: a locator re-resolved on every tick, or an element that
// was already resolved and is re-described on every tick.
type Target struct {
	Locator *schemas.Locator
	Element *schemas.ElementInfo
}

// ForLocator targets whatever loc resolves to at each tick.
func ForLocator(loc schemas.Locator) Target {
	return Target{Locator: &loc}
}

// ForElement targets one already resolved element.
func ForElement(el schemas.ElementInfo) Target {
	return Target{Element: &el}
}

func (t Target) String() string {
	switch {
	case t.Locator != nil:
		return t.Locator.String()
	case t.Element != nil:
		return fmt.Sprintf("element %d (%s)", t.Element.ID, describe(t.Element))
	}
	return "<no target>"
}

// Waiter polls targets. It is safe for concurrent use.
type Waiter struct {
	logger         *zap.Logger
	pollInterval   time.Duration
	defaultTimeout time.Duration
}

// New creates a Waiter. Non-positive durations select the package defaults.
func New(logger *zap.Logger, pollInterval, defaultTimeout time.Duration) *Waiter {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Waiter{
		logger:         logger.Named("waiter"),
		pollInterval:   pollInterval,
		defaultTimeout: defaultTimeout,
	}
}

// PollInterval returns the interval that will be used for a wait of the given timeout. It
// is capped at a quarter of the timeout so short waits still get several checks.
func (w *Waiter) PollInterval(timeout time.Duration) time.Duration {
	interval := w.pollInterval
	if limit := timeout / 4; interval > limit {
		interval = limit
	}
	if interval < minPollInterval {
		interval = minPollInterval
	}
	return interval
}

// WaitFor polls target until cond holds and returns the element it held for (the zero
// value when absence satisfied the condition). The first check runs immediately. A zero
// timeout uses the configured default. If the condition never holds the error is an
// AssertionTimeout wrapping a *TimeoutError, also when a page query was still pending at
// the deadline; if ctx ends first it is Cancelled.
func (w *Waiter) WaitFor(ctx context.Context, page schemas.Page, target Target, cond Condition, timeout time.Duration) (schemas.ElementInfo, error) {
	if target.Locator == nil && target.Element == nil {
		return schemas.ElementInfo{}, failure.New(failure.Resolution, "wait", "", "wait target has neither locator nor element")
	}
	if target.Locator != nil {
		if err := locator.Check(*target.Locator); err != nil {
			return schemas.ElementInfo{}, err
		}
	}
	if cond.Holds == nil {
		return schemas.ElementInfo{}, fmt.Errorf("condition %q has no predicate", cond.Name)
	}
	if timeout <= 0 {
		timeout = w.defaultTimeout
	}
	interval := w.PollInterval(timeout)

	start := time.Now()
	// Every page query runs under the wait deadline, so a page that stops answering cannot
	// hold the wait past its timeout.
	waitCtx, cancel := context.WithDeadline(ctx, start.Add(timeout))
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		ticks    int
		last     observation
		seen     bool
		answered bool
	)
	for {
		ticks++
		obs, ok := w.observeWithin(waitCtx, page, target, cond)
		if ok && obs.phase == phaseHeld {
			w.logger.Debug("Condition held.",
				zap.Stringer("target", target),
				zap.String("condition", cond.Name),
				zap.Int("ticks", ticks),
				zap.Duration("elapsed", time.Since(start)))
			return obs.element, nil
		}
		if ctx.Err() != nil {
			return schemas.ElementInfo{}, failure.Wrap(failure.Cancelled, "wait", target.String(), ctx.Err())
		}
		if !ok || (obs.err != nil && waitCtx.Err() != nil) {
			// The deadline passed while the page was still working on this check.
			switch {
			case !answered:
				last = observation{
					phase: PhaseUnresponsive,
					err:   fmt.Errorf("page did not answer within %s: %w", timeout, waitCtx.Err()),
				}
			case !ok && last.err == nil:
				last.err = fmt.Errorf("page stopped answering: %w", waitCtx.Err())
			}
			return schemas.ElementInfo{}, w.timedOut(target, cond, timeout, ticks, last)
		}
		answered = true
		if obs.found {
			seen = true
		} else if seen && obs.phase == PhaseNeverAppeared {
			obs.phase = PhaseDetached
		}
		last = obs

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return schemas.ElementInfo{}, failure.Wrap(failure.Cancelled, "wait", target.String(), ctx.Err())
			}
			return schemas.ElementInfo{}, w.timedOut(target, cond, timeout, ticks, last)
		case <-ticker.C:
		}
	}
}

func (w *Waiter) timedOut(target Target, cond Condition, timeout time.Duration, ticks int, last observation) error {
	te := &TimeoutError{
		Target:    target.String(),
		Condition: cond.Name,
		Timeout:   timeout,
		Ticks:     ticks,
		Phase:     last.phase,
		Count:     last.count,
		Last:      last.element,
		LastErr:   last.err,
	}
	w.logger.Debug("Condition timed out.",
		zap.Stringer("target", target),
		zap.String("condition", cond.Name),
		zap.String("phase", string(te.Phase)),
		zap.Int("ticks", ticks))
	return &failure.Error{
		Kind:   failure.Timeout,
		Op:     "wait",
		Target: te.Target,
		Err:    te,
	}
}

// phaseHeld is internal: the condition was satisfied on this tick.
const phaseHeld Phase = "held"

type observation struct {
	phase   Phase
	found   bool
	count   int
	element schemas.ElementInfo
	err     error
}

// observeWithin runs one check and gives up on it when ctx ends. ok is false when the page
// had not answered by then; the abandoned query finishes on its own goroutine.
func (w *Waiter) observeWithin(ctx context.Context, page schemas.Page, target Target, cond Condition) (obs observation, ok bool) {
	done := make(chan observation, 1)
	go func() { done <- w.observe(ctx, page, target, cond) }()
	select {
	case obs = <-done:
		return obs, true
	case <-ctx.Done():
		return observation{}, false
	}
}

func (w *Waiter) observe(ctx context.Context, page schemas.Page, target Target, cond Condition) observation {
	if target.Element != nil {
		el, err := page.Describe(ctx, target.Element.ID)
		if err != nil {
			return observation{phase: PhaseNeverAppeared, err: err}
		}
		if !el.Connected {
			if cond.SatisfiedByAbsence {
				return observation{phase: phaseHeld}
			}
			return observation{phase: PhaseDetached, element: el}
		}
		if cond.Holds(el) {
			return observation{phase: phaseHeld, element: el}
		}
		return observation{phase: PhaseWrongState, found: true, count: 1, element: el}
	}

	set, err := locator.Resolve(ctx, page, *target.Locator)
	if err != nil {
		// Page errors while the document is changing are transient; keep polling.
		return observation{phase: PhaseNeverAppeared, err: err}
	}
	switch len(set) {
	case 0:
		if cond.SatisfiedByAbsence {
			return observation{phase: phaseHeld}
		}
		return observation{phase: PhaseNeverAppeared}
	case 1:
		if cond.Holds(set[0]) {
			return observation{phase: phaseHeld, element: set[0]}
		}
		return observation{phase: PhaseWrongState, found: true, count: 1, element: set[0]}
	default:
		return observation{phase: PhaseAmbiguous, found: true, count: len(set), element: set[0]}
	}
}

// describe renders an element's observed state for messages.
func describe(el *schemas.ElementInfo) string {
	var b strings.Builder
	b.WriteString("<")
	if el.Tag != "" {
		b.WriteString(el.Tag)
	} else {
		b.WriteString("?")
	}
	if el.Role != "" {
		fmt.Fprintf(&b, " role=%s", el.Role)
	}
	if el.Name != "" {
		fmt.Fprintf(&b, " name=%q", el.Name)
	}
	if len(el.Classes) > 0 {
		fmt.Fprintf(&b, " class=%q", el.ClassAttr())
	}
	fmt.Fprintf(&b, " visible=%t connected=%t", el.Visible, el.Connected)
	if el.Connected {
		fmt.Fprintf(&b, " box=%gx%g", el.Box.Width, el.Box.Height)
	}
	b.WriteString(">")
	return b.String()
}
