// Package action dispatches user-level interactions against resolved elements.
package action

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/failure"
)

// Dispatcher performs clicks. It never waits for the target: callers establish visibility
// with the waiter first. When slowMo is set, consecutive actions are spaced at least that
// far apart, which makes headed runs watchable.
type Dispatcher struct {
	logger  *zap.Logger
	limiter *rate.Limiter
}

// NewDispatcher creates a dispatcher. A zero slowMo disables pacing.
func NewDispatcher(logger *zap.Logger, slowMo time.Duration) *Dispatcher {
	d := &Dispatcher{logger: logger.Named("action")}
	if slowMo > 0 {
		d.limiter = rate.NewLimiter(rate.Every(slowMo), 1)
	}
	return d
}

// Click dispatches a native click at the element's on-screen center. Detached, zero-size
// and covered targets fail with an InteractionFailure.
func (d *Dispatcher) Click(ctx context.Context, page schemas.Page, el schemas.ElementInfo) error {
	target := describe(el)

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return failure.Wrap(failure.Cancelled, "click", target, err)
		}
	}

	if err := page.Click(ctx, el.ID); err != nil {
		if ctx.Err() != nil {
			return failure.Wrap(failure.Cancelled, "click", target, ctx.Err())
		}
		if failure.IsKind(err, failure.Interaction) {
			return &failure.Error{Kind: failure.Interaction, Op: "click", Target: target, Err: err}
		}
		return failure.Wrap(failure.Interaction, "click", target, err)
	}

	d.logger.Debug("Clicked.", zap.String("target", target))
	return nil
}

func describe(el schemas.ElementInfo) string {
	switch {
	case el.Role != "" && el.Name != "":
		return fmt.Sprintf("%s %q", el.Role, el.Name)
	case el.Role != "":
		return el.Role
	case el.Tag != "":
		return "<" + el.Tag + ">"
	}
	return fmt.Sprintf("element %d", el.ID)
}
