// internal/browser/engine.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/config"
)

// ErrEngineClosed is returned when a session is requested after Shutdown.
var ErrEngineClosed = errors.New("browser engine is shut down")

// Engine is the process-wide handle on the browser runtime. Nothing is started until the
// first session is requested; every session then gets its own browser process.
type Engine struct {
	logger *zap.Logger
	cfg    *config.Config

	initOnce    sync.Once
	initErr     error
	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

var _ schemas.SessionProvider = (*Engine)(nil)

// NewEngine creates an engine. Initialization is deferred until the first session is opened.
func NewEngine(cfg *config.Config, logger *zap.Logger) *Engine {
	return &Engine{
		logger:   logger.Named("browser"),
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

func (e *Engine) initialize() error {
	e.initOnce.Do(func() {
		if path := e.cfg.Browser.ExecPath; path != "" {
			if _, err := os.Stat(path); err != nil {
				e.initErr = fmt.Errorf("browser executable %q is not usable: %w", path, err)
				return
			}
		}
		e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.Background(), DefaultAllocatorOptions(e.cfg.Browser)...)
		e.logger.Info("Browser engine initialized.", zap.Bool("headless", e.cfg.Browser.Headless))
	})
	return e.initErr
}

// OpenSession launches a browser process, creates an isolated browser context inside it and
// opens a blank page. A failure here means the runtime itself is unusable.
func (e *Engine) OpenSession(ctx context.Context) (*Session, error) {
	if err := e.initialize(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	e.mu.Unlock()

	id := uuid.New().String()
	log := e.logger.With(zap.String("session_id", id))

	// Each context created straight from the allocator gets a new browser process.
	browserCtx, browserCancel := chromedp.NewContext(e.allocCtx,
		chromedp.WithErrorf(log.Sugar().Debugf),
		chromedp.WithLogf(log.Sugar().Debugf),
	)
	pageCtx, pageCancel := chromedp.NewContext(browserCtx, chromedp.WithNewBrowserContext())

	// The first Run allocates; it must not see a deadline or the browser dies with it.
	launched := make(chan error, 1)
	go func() {
		if err := chromedp.Run(browserCtx); err != nil {
			launched <- fmt.Errorf("failed to launch browser: %w", err)
			return
		}
		if err := chromedp.Run(pageCtx); err != nil {
			launched <- fmt.Errorf("failed to open isolated page: %w", err)
			return
		}
		launched <- nil
	}()

	launchCtx := ctx
	if e.cfg.Browser.LaunchTimeout > 0 {
		var cancel context.CancelFunc
		launchCtx, cancel = context.WithTimeout(ctx, e.cfg.Browser.LaunchTimeout)
		defer cancel()
	}

	var err error
	select {
	case err = <-launched:
	case <-launchCtx.Done():
		pageCancel()
		browserCancel()
		<-launched
		err = fmt.Errorf("timeout waiting for browser launch: %w", launchCtx.Err())
	}
	if err != nil {
		pageCancel()
		browserCancel()
		return nil, err
	}

	s := &Session{
		id:            id,
		logger:        log,
		cfg:           e.cfg.Browser,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		pageCtx:       pageCtx,
		pageCancel:    pageCancel,
	}
	s.onRelease = func() {
		e.mu.Lock()
		delete(e.sessions, id)
		e.mu.Unlock()
	}

	e.mu.Lock()
	e.sessions[id] = s
	e.mu.Unlock()

	log.Info("Browser session opened.")
	return s, nil
}

// AcquireSession opens a session and navigates it to baseURL. If navigation fails the
// session is released before the error is returned.
func (e *Engine) AcquireSession(ctx context.Context, baseURL string) (schemas.Session, error) {
	s, err := e.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Navigate(ctx, baseURL); err != nil {
		if releaseErr := s.Release(ctx); releaseErr != nil {
			e.logger.Warn("Failed to release session after navigation error.", zap.Error(releaseErr))
		}
		return nil, err
	}
	return s, nil
}

// ActiveSessions reports how many sessions are open and not yet released.
func (e *Engine) ActiveSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Shutdown releases every open session concurrently and stops the allocator.
// Safe to call more than once.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	open := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		open = append(open, s)
	}
	e.mu.Unlock()

	if len(open) > 0 {
		e.logger.Warn("Releasing sessions still open at shutdown.", zap.Int("count", len(open)))
	}

	var g errgroup.Group
	for _, s := range open {
		g.Go(func() error {
			if err := s.Release(ctx); err != nil {
				return fmt.Errorf("session %s: %w", s.ID(), err)
			}
			return nil
		})
	}
	err := g.Wait()

	// Synchronizes with a concurrent initialize.
	e.initOnce.Do(func() {})
	if e.allocCancel != nil {
		e.allocCancel()
	}
	e.logger.Info("Browser engine shut down.")
	return err
}
