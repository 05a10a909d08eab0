package waiter

import (
	"context"
	"time"

	"github.com/xkilldash9x/uiverify/api/schemas"
)

// Expectation binds a page and a target so assertions read like the scripts they replace:
//
//	w.Expect(page, schemas.ByRoleName("button", "Proceed to Payment")).To(ctx, Visible(), 5*time.Second)
type Expectation struct {
	w      *Waiter
	page   schemas.Page
	target Target
}

// Expect starts an assertion on whatever loc resolves to.
func (w *Waiter) Expect(page schemas.Page, loc schemas.Locator) *Expectation {
	return &Expectation{w: w, page: page, target: ForLocator(loc)}
}

// To waits for cond to hold.
func (e *Expectation) To(ctx context.Context, cond Condition, timeout time.Duration) (schemas.ElementInfo, error) {
	return e.w.WaitFor(ctx, e.page, e.target, cond, timeout)
}
