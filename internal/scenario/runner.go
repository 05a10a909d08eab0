package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/action"
	"github.com/xkilldash9x/uiverify/internal/evidence"
	"github.com/xkilldash9x/uiverify/internal/failure"
	"github.com/xkilldash9x/uiverify/internal/locator"
	"github.com/xkilldash9x/uiverify/internal/observability"
	"github.com/xkilldash9x/uiverify/internal/waiter"
)

const (
	// cleanupTimeout bounds the failure capture and the release that run after the
	// scenario context may already be gone.
	cleanupTimeout = 15 * time.Second
	pageURLTimeout = 2 * time.Second
)

// Runner executes scenarios. Each Run acquires its own session and releases it exactly
// once before returning, whatever happened in between.
type Runner struct {
	logger     *zap.Logger
	provider   schemas.SessionProvider
	waiter     *waiter.Waiter
	dispatcher *action.Dispatcher
	capturer   *evidence.Capturer
	// timeout bounds a whole run. Zero means no bound beyond the caller's context.
	timeout time.Duration
}

// NewRunner wires a runner from its collaborators.
func NewRunner(
	logger *zap.Logger,
	provider schemas.SessionProvider,
	w *waiter.Waiter,
	d *action.Dispatcher,
	c *evidence.Capturer,
	timeout time.Duration,
) *Runner {
	return &Runner{
		logger:     logger.Named("scenario"),
		provider:   provider,
		waiter:     w,
		dispatcher: d,
		capturer:   c,
		timeout:    timeout,
	}
}

// RunAll runs scenarios one after another. It stops early, without acquiring further
// sessions, once ctx is done.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario, baseURL string) []*schemas.ScenarioOutcome {
	outcomes := make([]*schemas.ScenarioOutcome, 0, len(scenarios))
	r.RunEach(ctx, scenarios, baseURL, func(o *schemas.ScenarioOutcome) {
		outcomes = append(outcomes, o)
	})
	return outcomes
}

// RunEach is RunAll with each outcome handed to emit as soon as its run finishes.
func (r *Runner) RunEach(ctx context.Context, scenarios []Scenario, baseURL string, emit func(*schemas.ScenarioOutcome)) {
	for i, sc := range scenarios {
		if ctx.Err() != nil {
			r.logger.Warn("Run cancelled; remaining scenarios skipped.",
				zap.Int("skipped", len(scenarios)-i))
			return
		}
		emit(r.Run(ctx, sc, baseURL))
	}
}

// Run executes one scenario and always returns an outcome. Expected failures never
// escape as errors; they are recorded on the outcome along with the failure screenshot.
func (r *Runner) Run(ctx context.Context, sc Scenario, baseURL string) *schemas.ScenarioOutcome {
	m := newMachine(uuid.New().String(), sc.Name, baseURL)
	log := observability.ForRun(r.logger, m.outcome.RunID, sc.Name)
	log.Info("Scenario started.", zap.String("base_url", baseURL))

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var session schemas.Session
	if err := r.prepare(ctx, &sc, baseURL, &session); err != nil {
		r.fail(ctx, log, m, nil, sc, "", err)
	} else {
		r.execute(ctx, log, m, session, sc)
	}
	r.finish(ctx, log, m, session)
	return m.outcome
}

func (r *Runner) prepare(ctx context.Context, sc *Scenario, baseURL string, session *schemas.Session) error {
	if err := sc.Validate(); err != nil {
		return failure.Wrap(failure.Unexpected, "validate", sc.Name, err)
	}
	target, err := ResolveURL(baseURL, sc.Path)
	if err != nil {
		return failure.Wrap(failure.Navigation, "navigate", sc.Path, err)
	}
	s, err := r.provider.AcquireSession(ctx, target)
	if err != nil {
		return err
	}
	*session = s
	return nil
}

// execute drives the steps and the success capture. A panic in any collaborator is
// converted into an UnexpectedError so the caller still reaches release.
func (r *Runner) execute(ctx context.Context, log *zap.Logger, m *machine, session schemas.Session, sc Scenario) {
	label := ""
	defer func() {
		if p := recover(); p != nil {
			r.fail(ctx, log, m, session, sc, label, failure.New(failure.Unexpected, "run", sc.Name, fmt.Sprintf("panic: %v", p)))
		}
	}()

	m.to(schemas.StateNavigated, "")

	for i, step := range sc.Steps {
		label = fmt.Sprintf("%d: %s", i+1, step)
		log.Debug("Step started.", zap.String("step", label))
		if err := r.step(ctx, log, m, session, step, label); err != nil {
			r.fail(ctx, log, m, session, sc, label, err)
			return
		}
	}
	label = ""

	m.to(schemas.StateCaptured, "success capture")
	r.capture(ctx, log, m, session, sc.SuccessArtifact, schemas.CaptureSuccess)
	m.outcome.Status = schemas.StatusCompleted
}

func (r *Runner) step(ctx context.Context, log *zap.Logger, m *machine, session schemas.Session, step Step, label string) error {
	switch step.Kind {
	case StepExpect:
		if _, err := r.waiter.Expect(session, step.Locator).To(ctx, step.Condition, step.Timeout); err != nil {
			return err
		}
		m.to(schemas.StateResolved, label)
		m.to(schemas.StateAsserted, label)

	case StepClick:
		el, err := locator.ResolveOne(ctx, session, step.Locator)
		if err != nil {
			return err
		}
		m.to(schemas.StateResolved, label)
		if err := r.dispatcher.Click(ctx, session, el); err != nil {
			return err
		}
		m.to(schemas.StateActed, label)

	case StepCapture:
		m.to(schemas.StateCaptured, label)
		r.capture(ctx, log, m, session, step.Path, schemas.CaptureIntermediate)

	case StepNavigate:
		target, err := ResolveURL(m.outcome.BaseURL, step.Path)
		if err != nil {
			return failure.Wrap(failure.Navigation, "navigate", step.Path, err)
		}
		if err := session.Navigate(ctx, target); err != nil {
			return err
		}
		m.to(schemas.StateNavigated, label)

	default:
		return failure.New(failure.Unexpected, "step", label, "unknown step kind")
	}
	if err := ctx.Err(); err != nil {
		return failure.Wrap(failure.Cancelled, "run", label, err)
	}
	return nil
}

// fail moves the run into Failed, records the reason once, and attempts the failure
// capture. session is nil when acquisition itself failed.
func (r *Runner) fail(ctx context.Context, log *zap.Logger, m *machine, session schemas.Session, sc Scenario, label string, err error) {
	if m.state == schemas.StateFailed || m.state == schemas.StateDone {
		return
	}
	if ctx.Err() != nil && !failure.IsKind(err, failure.Cancelled) {
		err = failure.Wrap(failure.Cancelled, "run", sc.Name, fmt.Errorf("%w (%v)", ctx.Err(), err))
	}
	m.to(schemas.StateFailed, label)
	m.outcome.Status = schemas.StatusFailed
	m.outcome.FailureKind = string(failure.KindOf(err))
	m.outcome.FailureReason = err.Error()
	m.outcome.FailedStep = label

	cctx, cancel := cleanupContext(ctx)
	defer cancel()
	fields := []zap.Field{
		zap.String("kind", m.outcome.FailureKind),
		zap.String("step", label),
		zap.Error(err),
	}
	if session != nil {
		fields = append(fields, zap.String("page_url", pageURL(cctx, session)))
	}
	log.Error("Scenario failed.", fields...)

	if session == nil {
		m.outcome.CaptureErrors = append(m.outcome.CaptureErrors,
			failure.New(failure.Capture, "capture", sc.FailureArtifact, "no page to capture: session was never acquired").Error())
		log.Warn("Failure capture skipped, no session.", zap.String("path", sc.FailureArtifact))
		return
	}
	r.capture(cctx, log, m, session, sc.FailureArtifact, schemas.CaptureFailure)
}

func (r *Runner) capture(ctx context.Context, log *zap.Logger, m *machine, page schemas.Page, path string, state schemas.CaptureState) {
	art, err := r.capturer.Capture(ctx, page, path, state)
	if err != nil {
		log.Warn("Evidence capture failed.", zap.String("path", path), zap.Error(err))
		m.outcome.CaptureErrors = append(m.outcome.CaptureErrors, err.Error())
		return
	}
	m.outcome.Artifacts = append(m.outcome.Artifacts, art)
}

// finish transitions to Done, releasing the session exactly once.
func (r *Runner) finish(ctx context.Context, log *zap.Logger, m *machine, session schemas.Session) {
	m.to(schemas.StateDone, "")
	if session != nil {
		cctx, cancel := cleanupContext(ctx)
		defer cancel()
		if err := session.Release(cctx); err != nil {
			log.Warn("Session release reported an error.", zap.Error(err))
			m.outcome.ReleaseError = err.Error()
		}
	}
	m.outcome.FinishedAt = time.Now()

	fields := []zap.Field{
		zap.String("status", string(m.outcome.Status)),
		zap.Duration("duration", m.outcome.Duration()),
		zap.Int("artifacts", len(m.outcome.Artifacts)),
	}
	if m.outcome.Completed() {
		log.Info("Scenario completed.", fields...)
	} else {
		log.Info("Scenario finished with failure.", append(fields, zap.String("kind", m.outcome.FailureKind))...)
	}
}

// pageURL reports where the page was when a step failed. A page that does not answer
// quickly is reported as unknown.
func pageURL(ctx context.Context, page schemas.Page) string {
	ctx, cancel := context.WithTimeout(ctx, pageURLTimeout)
	defer cancel()
	u, err := page.URL(ctx)
	if err != nil {
		return "unknown"
	}
	return u
}

// cleanupContext keeps the caller's values but not its cancellation, so cleanup still
// runs after a scenario timeout or an interrupt.
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}
