// Package scenario composes sessions, locators, waits, clicks and captures into scripted
// verification runs, and turns every way a run can end into a ScenarioOutcome.
package scenario

import (
	"fmt"
	"net/url"
	"time"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/locator"
	"github.com/xkilldash9x/uiverify/internal/waiter"
)

// StepKind names what a step does.
type StepKind string

const (
	StepExpect   StepKind = "expect"
	StepClick    StepKind = "click"
	StepCapture  StepKind = "capture"
	StepNavigate StepKind = "navigate"
)

// Step is one instruction of a scenario.
type Step struct {
	Kind    StepKind
	Locator schemas.Locator
	// Condition and Timeout apply to expect steps. A zero Timeout uses the waiter default.
	Condition waiter.Condition
	Timeout   time.Duration
	// Path is the artifact path of a capture step or the URL path of a navigate step.
	Path string
}

// Expect asserts that cond holds for loc within timeout.
func Expect(loc schemas.Locator, cond waiter.Condition, timeout time.Duration) Step {
	return Step{Kind: StepExpect, Locator: loc, Condition: cond, Timeout: timeout}
}

// Click resolves exactly one element for loc and clicks it.
func Click(loc schemas.Locator) Step {
	return Step{Kind: StepClick, Locator: loc}
}

// Capture writes an intermediate screenshot.
func Capture(path string) Step {
	return Step{Kind: StepCapture, Path: path}
}

// Navigate loads path relative to the scenario's base URL.
func Navigate(path string) Step {
	return Step{Kind: StepNavigate, Path: path}
}

func (s Step) String() string {
	switch s.Kind {
	case StepExpect:
		if s.Timeout > 0 {
			return fmt.Sprintf("expect %s %s within %s", s.Locator, s.Condition, s.Timeout)
		}
		return fmt.Sprintf("expect %s %s", s.Locator, s.Condition)
	case StepClick:
		return "click " + s.Locator.String()
	case StepCapture:
		return "capture " + s.Path
	case StepNavigate:
		return "navigate " + s.Path
	}
	return string(s.Kind)
}

// Validate checks a step without touching a page.
func (s Step) Validate() error {
	switch s.Kind {
	case StepExpect:
		if err := locator.Check(s.Locator); err != nil {
			return err
		}
		if s.Condition.Holds == nil {
			return fmt.Errorf("expect step has no condition")
		}
		if s.Timeout < 0 {
			return fmt.Errorf("expect step timeout must not be negative")
		}
	case StepClick:
		return locator.Check(s.Locator)
	case StepCapture:
		if s.Path == "" {
			return fmt.Errorf("capture step needs a path")
		}
	case StepNavigate:
		if _, err := url.Parse(s.Path); err != nil {
			return fmt.Errorf("navigate step path: %w", err)
		}
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return nil
}

// Scenario is an ordered script run against one fresh session.
type Scenario struct {
	Name        string
	Description string
	// Path is resolved against the base URL to get the first page.
	Path            string
	Steps           []Step
	SuccessArtifact string
	FailureArtifact string
}

// Validate checks the scenario and fills in default artifact names.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := url.Parse(sc.Path); err != nil {
		return fmt.Errorf("path: %w", err)
	}
	for i, step := range sc.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	if sc.SuccessArtifact == "" {
		sc.SuccessArtifact = sc.Name + ".png"
	}
	if sc.FailureArtifact == "" {
		sc.FailureArtifact = sc.Name + "-error.png"
	}
	if sc.SuccessArtifact == sc.FailureArtifact {
		return fmt.Errorf("success and failure artifacts must differ, both are %q", sc.SuccessArtifact)
	}
	return nil
}

// ResolveURL joins a scenario or step path onto the base URL.
func ResolveURL(baseURL, path string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if path == "" {
		return base.String(), nil
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	return base.ResolveReference(ref).String(), nil
}
