// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/config"
	"github.com/xkilldash9x/uiverify/internal/failure"
)

// ErrSessionReleased is returned by every page operation attempted after Release.
var ErrSessionReleased = errors.New("browser session already released")

const releaseTimeout = 10 * time.Second

// Session is one browser process with one isolated browser context and one page.
type Session struct {
	id     string
	logger *zap.Logger
	cfg    config.BrowserConfig

	// browserCtx owns the browser process.
	browserCtx    context.Context
	browserCancel context.CancelFunc
	// pageCtx owns the target inside a dedicated browser context.
	pageCtx    context.Context
	pageCancel context.CancelFunc

	released    atomic.Bool
	releaseOnce sync.Once
	releaseErr  error
	onRelease   func()
}

var _ schemas.Session = (*Session)(nil)

// ID returns the unique identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// run executes actions on the page, bounded by both the page lifetime and ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.released.Load() {
		return ErrSessionReleased
	}
	opCtx, cancel := CombineContext(s.pageCtx, ctx)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.released.Load() {
		return ErrSessionReleased
	}
	s.logger.Debug("Navigating.", zap.String("url", url))

	navCtx := ctx
	if s.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, s.cfg.NavigationTimeout)
		defer cancel()
	}
	opCtx, cancel := CombineContext(s.pageCtx, navCtx)
	defer cancel()

	resp, err := chromedp.RunResponse(opCtx, chromedp.Navigate(url))
	if err != nil {
		// Caller cancellation is not a property of the target.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if navCtx.Err() != nil {
			return failure.New(failure.Navigation, "navigate", url,
				fmt.Sprintf("no load event within %s", s.cfg.NavigationTimeout))
		}
		return failure.Wrap(failure.Navigation, "navigate", url, err)
	}

	var current string
	if err := s.run(ctx, chromedp.Location(&current)); err != nil {
		return failure.Wrap(failure.Navigation, "navigate", url, err)
	}
	if strings.HasPrefix(current, "chrome-error://") {
		return failure.New(failure.Navigation, "navigate", url, "browser rendered its error page")
	}

	if resp != nil && (resp.Status < 200 || resp.Status >= 300) {
		var renderable bool
		if err := s.run(ctx, chromedp.Evaluate(callJS("hasRenderableBody"), &renderable)); err != nil {
			return failure.Wrap(failure.Navigation, "navigate", url, err)
		}
		if !renderable {
			return failure.New(failure.Navigation, "navigate", url,
				fmt.Sprintf("HTTP %d %s with an empty document", resp.Status, resp.StatusText))
		}
		s.logger.Warn("Main document returned a non-2xx status but rendered content.",
			zap.String("url", url), zap.Int64("status", resp.Status))
	}

	s.logger.Debug("Navigation complete.", zap.String("url", current))
	return nil
}

// URL returns the address of the current main document.
func (s *Session) URL(ctx context.Context) (string, error) {
	var current string
	if err := s.run(ctx, chromedp.Location(&current)); err != nil {
		return "", fmt.Errorf("failed to read page location: %w", err)
	}
	return current, nil
}

// Candidates runs the role (or CSS) query in the page.
func (s *Session) Candidates(ctx context.Context, loc schemas.Locator) ([]schemas.ElementInfo, error) {
	var expr string
	if loc.CSS != "" {
		expr = callJS("byCSS", loc.CSS)
	} else {
		expr = callJS("byRole", loc.Role, loc.IncludeHidden)
	}

	var out []schemas.ElementInfo
	if err := s.run(ctx, chromedp.Evaluate(expr, &out)); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", loc, err)
	}
	return out, nil
}

// Describe re-reads a resolved element. An element from a previous document, or one the
// page dropped, comes back with Connected=false.
func (s *Session) Describe(ctx context.Context, id int64) (schemas.ElementInfo, error) {
	var info schemas.ElementInfo
	if err := s.run(ctx, chromedp.Evaluate(callJS("describe", id), &info)); err != nil {
		return schemas.ElementInfo{}, fmt.Errorf("failed to describe element %d: %w", id, err)
	}
	return info, nil
}

// Click scrolls the element into view, hit-tests its center and dispatches a native left
// click there.
func (s *Session) Click(ctx context.Context, id int64) error {
	target := fmt.Sprintf("element %d", id)

	var pt clickPoint
	if err := s.run(ctx, chromedp.Evaluate(callJS("clickPoint", id), &pt)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return failure.Wrap(failure.Interaction, "click", target, err)
	}
	if pt.Error != "" {
		return failure.New(failure.Interaction, "click", target, pt.Error)
	}

	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := input.DispatchMouseEvent(input.MouseMoved, pt.X, pt.Y).Do(ctx); err != nil {
			return err
		}
		if err := input.DispatchMouseEvent(input.MousePressed, pt.X, pt.Y).
			WithButton(input.Left).WithClickCount(1).Do(ctx); err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseReleased, pt.X, pt.Y).
			WithButton(input.Left).WithClickCount(1).Do(ctx)
	}))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return failure.Wrap(failure.Interaction, "click", target, err)
	}

	s.logger.Debug("Dispatched click.", zap.Int64("element", id), zap.Float64("x", pt.X), zap.Float64("y", pt.Y))
	return nil
}

// Screenshot captures the viewport, or the whole scrollable page when fullPage is set, as PNG.
func (s *Session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	action := chromedp.CaptureScreenshot(&buf)
	if fullPage {
		// Quality 100 selects PNG encoding.
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := s.run(ctx, action); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Release closes the page and its browser context, then the browser process. It runs at
// most once; later calls return the first result. ctx only bounds how long Release waits,
// so a canceled scenario context still gets a full cleanup.
func (s *Session) Release(ctx context.Context) error {
	s.releaseOnce.Do(func() {
		s.released.Store(true)

		waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			var errs []error
			if err := chromedp.Cancel(s.pageCtx); err != nil && !errors.Is(err, context.Canceled) {
				errs = append(errs, fmt.Errorf("failed to close page: %w", err))
			}
			s.pageCancel()
			if err := chromedp.Cancel(s.browserCtx); err != nil && !errors.Is(err, context.Canceled) {
				errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
			}
			s.browserCancel()
			done <- errors.Join(errs...)
		}()

		select {
		case s.releaseErr = <-done:
		case <-waitCtx.Done():
			s.pageCancel()
			s.browserCancel()
			s.releaseErr = fmt.Errorf("timed out waiting for browser to close: %w", waitCtx.Err())
		}

		if s.releaseErr != nil {
			s.logger.Warn("Session released with errors.", zap.Error(s.releaseErr))
		} else {
			s.logger.Debug("Session released.")
		}
		if s.onRelease != nil {
			s.onRelease()
		}
	})
	return s.releaseErr
}
