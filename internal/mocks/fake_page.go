// File: internal/mocks/fake_page.go
package mocks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/failure"
)

// PNG is the payload returned by FakePage screenshots.
var PNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 'f', 'a', 'k', 'e'}

// FakeElement is one element of a FakePage document.
type FakeElement struct {
	Tag     string
	Role    string
	Name    string
	Classes []string
	// Hidden keeps the element in the DOM but out of the accessibility tree and invisible.
	Hidden bool
	Box    schemas.Rect
	// CoveredBy makes clicks fail as if another element sat on top.
	CoveredBy string
	// AppearAt delays the element's insertion into the document.
	AppearAt time.Time
	// OnClick runs after a successful click, with the page unlocked.
	OnClick func(p *FakePage)

	id      int64
	removed bool
}

// ID returns the handle assigned when the element was added.
func (e *FakeElement) ID() int64 { return e.id }

// FakePage is an in-memory schemas.Page with just enough DOM behavior for the harness:
// role and tag queries, delayed rendering, class mutation, detachment and overlays.
type FakePage struct {
	mu       sync.Mutex
	url      string
	elements []*FakeElement
	nextID   int64

	// NavigateErr is returned by every Navigate call when set.
	NavigateErr error
	// CandidatesErr is returned by every Candidates call when set.
	CandidatesErr error
	// ScreenshotErr is returned by every Screenshot call when set.
	ScreenshotErr error
	// Stall, when set, blocks Candidates and Describe until it is closed, regardless of
	// the caller's context. It models a page whose main thread is stuck, for example on
	// an alert().
	Stall chan struct{}
	// OnNavigate runs after a navigation succeeds. The document is left as is unless it
	// calls Clear.
	OnNavigate func(p *FakePage, url string)

	navigations atomic.Int32
	queries     atomic.Int32
	clicks      atomic.Int32
	screenshots atomic.Int32
}

var _ schemas.Page = (*FakePage)(nil)

// NewFakePage returns an empty page at about:blank.
func NewFakePage() *FakePage {
	return &FakePage{url: "about:blank"}
}

// Add inserts elements at the end of the document and returns them with ids assigned.
func (p *FakePage) Add(els ...*FakeElement) []*FakeElement {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, el := range els {
		p.nextID++
		el.id = p.nextID
		if el.Box.Empty() && !el.Hidden {
			el.Box = schemas.Rect{X: 10, Y: 10, Width: 100, Height: 30}
		}
		p.elements = append(p.elements, el)
	}
	return els
}

// AddOne is Add for a single element.
func (p *FakePage) AddOne(el *FakeElement) *FakeElement {
	return p.Add(el)[0]
}

// Remove detaches an element from the document.
func (p *FakePage) Remove(el *FakeElement) {
	p.Mutate(func() { el.removed = true })
}

// Clear removes every element, as a navigation does.
func (p *FakePage) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, el := range p.elements {
		el.removed = true
	}
	p.elements = nil
}

// Mutate runs fn with the page locked so element fields can be changed safely.
func (p *FakePage) Mutate(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn()
}

// ToggleClass adds class to el if absent, otherwise removes it.
func (p *FakePage) ToggleClass(el *FakeElement, class string) {
	p.Mutate(func() {
		for i, c := range el.Classes {
			if c == class {
				el.Classes = append(el.Classes[:i:i], el.Classes[i+1:]...)
				return
			}
		}
		el.Classes = append(el.Classes, class)
	})
}

func (p *FakePage) Navigations() int { return int(p.navigations.Load()) }
func (p *FakePage) Queries() int     { return int(p.queries.Load()) }
func (p *FakePage) Clicks() int      { return int(p.clicks.Load()) }
func (p *FakePage) Screenshots() int { return int(p.screenshots.Load()) }

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.navigations.Add(1)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
	if p.OnNavigate != nil {
		p.OnNavigate(p, url)
	}
	return nil
}

func (p *FakePage) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

// present reports whether el is part of the document at now. Callers hold p.mu.
func (el *FakeElement) present(now time.Time) bool {
	return !el.removed && (el.AppearAt.IsZero() || !now.Before(el.AppearAt))
}

func (el *FakeElement) info(now time.Time) schemas.ElementInfo {
	connected := el.present(now)
	return schemas.ElementInfo{
		ID:        el.id,
		Tag:       el.Tag,
		Role:      el.Role,
		Name:      el.Name,
		Classes:   append([]string(nil), el.Classes...),
		Visible:   connected && !el.Hidden && !el.Box.Empty(),
		Connected: connected,
		Box:       el.Box,
	}
}

func (p *FakePage) Candidates(ctx context.Context, loc schemas.Locator) ([]schemas.ElementInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.queries.Add(1)
	if p.Stall != nil {
		<-p.Stall
	}
	if p.CandidatesErr != nil {
		return nil, p.CandidatesErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	var out []schemas.ElementInfo
	for _, el := range p.elements {
		if !el.present(now) {
			continue
		}
		if loc.CSS != "" {
			if el.Tag == loc.CSS {
				out = append(out, el.info(now))
			}
			continue
		}
		if el.Role != loc.Role || (el.Hidden && !loc.IncludeHidden) {
			continue
		}
		out = append(out, el.info(now))
	}
	return out, nil
}

func (p *FakePage) Describe(ctx context.Context, id int64) (schemas.ElementInfo, error) {
	if err := ctx.Err(); err != nil {
		return schemas.ElementInfo{}, err
	}
	p.queries.Add(1)
	if p.Stall != nil {
		<-p.Stall
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, el := range p.elements {
		if el.id == id {
			return el.info(time.Now()), nil
		}
	}
	return schemas.ElementInfo{ID: id}, nil
}

func (p *FakePage) Click(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := fmt.Sprintf("element %d", id)

	p.mu.Lock()
	var el *FakeElement
	for _, candidate := range p.elements {
		if candidate.id == id {
			el = candidate
		}
	}
	var detail string
	switch {
	case el == nil || !el.present(time.Now()):
		detail = "element is detached from the document"
	case el.Box.Empty() || el.Hidden:
		detail = fmt.Sprintf("element has zero size (%gx%g)", el.Box.Width, el.Box.Height)
	case el.CoveredBy != "":
		detail = "element is covered by <" + el.CoveredBy + ">"
	}
	p.mu.Unlock()

	if detail != "" {
		return failure.New(failure.Interaction, "click", target, detail)
	}
	p.clicks.Add(1)
	if el.OnClick != nil {
		el.OnClick(p)
	}
	return nil
}

func (p *FakePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.screenshots.Add(1)
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	return append([]byte(nil), PNG...), nil
}

// FakeSession is a FakePage with a release counter.
type FakeSession struct {
	*FakePage
	id         string
	releases   atomic.Int32
	ReleaseErr error
}

var _ schemas.Session = (*FakeSession)(nil)

// NewFakeSession wraps page in a session.
func NewFakeSession(page *FakePage) *FakeSession {
	return &FakeSession{FakePage: page, id: uuid.New().String()}
}

func (s *FakeSession) ID() string { return s.id }

// Release counts every call; the harness must make exactly one.
func (s *FakeSession) Release(ctx context.Context) error {
	s.releases.Add(1)
	return s.ReleaseErr
}

func (s *FakeSession) Releases() int { return int(s.releases.Load()) }

// FakeProvider hands out FakeSessions whose pages are built by Setup, mirroring how a real
// engine navigates a fresh browser and releases it itself when navigation fails.
type FakeProvider struct {
	// Setup builds the page for every new session. Each session gets a fresh page.
	Setup func(p *FakePage)
	// AcquireErr fails every acquisition before a session exists.
	AcquireErr error

	mu       sync.Mutex
	sessions []*FakeSession
}

var _ schemas.SessionProvider = (*FakeProvider)(nil)

func (f *FakeProvider) AcquireSession(ctx context.Context, baseURL string) (schemas.Session, error) {
	if f.AcquireErr != nil {
		return nil, f.AcquireErr
	}
	page := NewFakePage()
	if f.Setup != nil {
		f.Setup(page)
	}
	s := NewFakeSession(page)
	f.mu.Lock()
	f.sessions = append(f.sessions, s)
	f.mu.Unlock()

	if err := page.Navigate(ctx, baseURL); err != nil {
		_ = s.Release(ctx)
		return nil, err
	}
	return s, nil
}

// Sessions returns every session created so far.
func (f *FakeProvider) Sessions() []*FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeSession(nil), f.sessions...)
}

// Leaked returns the sessions that were not released exactly once.
func (f *FakeProvider) Leaked() []string {
	var out []string
	for _, s := range f.Sessions() {
		if n := s.Releases(); n != 1 {
			out = append(out, fmt.Sprintf("%s released %d times", s.ID(), n))
		}
	}
	return out
}
