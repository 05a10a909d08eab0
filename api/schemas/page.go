package schemas

import (
	"context"
	"strings"
)

// -- Page Schemas --

// Rect is an element's bounding box in CSS pixels, relative to the viewport.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the box.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Empty reports whether the box has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// ElementInfo is a snapshot of a live element's observable state. ID is a page-scoped
// handle assigned at resolution time; it stays valid until the page navigates.
type ElementInfo struct {
	ID        int64    `json:"id"`
	Tag       string   `json:"tag"`
	Role      string   `json:"role"`
	Name      string   `json:"name"`
	Classes   []string `json:"classes"`
	Visible   bool     `json:"visible"`
	Connected bool     `json:"connected"`
	Box       Rect     `json:"box"`
}

// HasClass reports whether the element's class list contains class exactly.
func (e ElementInfo) HasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// ClassAttr returns the class list joined the way it appears in the DOM attribute.
func (e ElementInfo) ClassAttr() string {
	return strings.Join(e.Classes, " ")
}

// Page is the capability surface the harness needs from a browser page. Every call is a
// live round trip; nothing is cached between calls.
type Page interface {
	// Navigate loads url and waits for the main document. Failures are NavigationFailures.
	Navigate(ctx context.Context, url string) error
	// URL returns the address of the current main document.
	URL(ctx context.Context) (string, error)
	// Candidates returns the elements whose role (or CSS selector) matches loc, in document
	// order. The accessible-name constraint is not applied here. An empty result is not an error.
	Candidates(ctx context.Context, loc Locator) ([]ElementInfo, error)
	// Describe re-reads the state of a previously resolved element.
	Describe(ctx context.Context, id int64) (ElementInfo, error)
	// Click dispatches a native mouse click at the element's on-screen center.
	Click(ctx context.Context, id int64) error
	// Screenshot captures the page as PNG bytes.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
}

// Session is a Page owned by exactly one scenario run. Release closes the page, its
// isolated browser context and the browser process, and is a no-op after the first call.
type Session interface {
	Page
	ID() string
	Release(ctx context.Context) error
}

// SessionProvider opens a fresh Session already navigated to baseURL. If navigation fails
// the provider releases the session itself and returns the navigation error.
type SessionProvider interface {
	AcquireSession(ctx context.Context, baseURL string) (Session, error)
}
