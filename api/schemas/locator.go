package schemas

import (
	"fmt"
	"strconv"
	"strings"
)

// -- Locator Schemas --

// MatchMode controls how a Locator's accessible name is compared against an element's computed name.
type MatchMode string

const (
	// MatchSubstring matches when the element name contains the locator name, ignoring case
	// and collapsing whitespace. This is the default when a name is given.
	MatchSubstring MatchMode = "substring"
	// MatchExact requires the whitespace-normalized names to be identical (case-sensitive).
	MatchExact MatchMode = "exact"
	// MatchPattern treats the locator name as a regular expression.
	MatchPattern MatchMode = "pattern"
)

// Valid reports whether m is a known match mode. The empty mode is valid and means MatchSubstring.
func (m MatchMode) Valid() bool {
	switch m {
	case "", MatchSubstring, MatchExact, MatchPattern:
		return true
	}
	return false
}

// Locator is a semantic descriptor for finding elements on a page. It is not a live handle;
// resolving it against the current page yields zero, one, or many elements.
//
// Exactly one of Role or CSS is set. CSS locators exist for structural targets that have no
// accessible role, such as the document root.
type Locator struct {
	Role      string    `json:"role,omitempty" yaml:"role,omitempty"`
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	MatchMode MatchMode `json:"match_mode,omitempty" yaml:"match_mode,omitempty"`
	CSS       string    `json:"css,omitempty" yaml:"css,omitempty"`
	// IncludeHidden keeps elements that are excluded from the accessibility tree
	// (display:none, visibility:hidden, aria-hidden) in role resolution.
	IncludeHidden bool `json:"include_hidden,omitempty" yaml:"include_hidden,omitempty"`
}

// ByRole builds a role locator with no name constraint.
func ByRole(role string) Locator {
	return Locator{Role: role}
}

// ByRoleName builds a role locator constrained by accessible name using substring matching.
func ByRoleName(role, name string) Locator {
	return Locator{Role: role, Name: name, MatchMode: MatchSubstring}
}

// ByCSS builds a structural locator from a CSS selector.
func ByCSS(selector string) Locator {
	return Locator{CSS: selector}
}

// Exact returns a copy of the locator using exact name matching.
func (l Locator) Exact() Locator {
	l.MatchMode = MatchExact
	return l
}

// Mode returns the effective match mode.
func (l Locator) Mode() MatchMode {
	if l.MatchMode == "" {
		return MatchSubstring
	}
	return l.MatchMode
}

// IsZero reports whether the locator has no selection key at all.
func (l Locator) IsZero() bool {
	return l.Role == "" && l.CSS == ""
}

// Validate checks the locator is well formed.
func (l Locator) Validate() error {
	switch {
	case l.IsZero():
		return fmt.Errorf("locator requires a role or a css selector")
	case l.Role != "" && l.CSS != "":
		return fmt.Errorf("locator cannot have both role %q and css %q", l.Role, l.CSS)
	case l.CSS != "" && l.Name != "":
		return fmt.Errorf("css locator %q cannot carry an accessible name", l.CSS)
	case !l.MatchMode.Valid():
		return fmt.Errorf("unknown match mode %q", l.MatchMode)
	}
	return nil
}

// String renders the locator in the same textual form accepted by locator.Parse.
func (l Locator) String() string {
	if l.CSS != "" {
		return "css=" + l.CSS
	}
	var b strings.Builder
	b.WriteString("role=")
	b.WriteString(l.Role)
	if l.Name != "" {
		b.WriteString("[name=")
		if l.Mode() == MatchPattern {
			b.WriteString("/" + l.Name + "/")
		} else {
			b.WriteString(strconv.Quote(l.Name))
		}
		b.WriteString("]")
		if l.Mode() == MatchExact {
			b.WriteString("[exact]")
		}
	}
	if l.IncludeHidden {
		b.WriteString("[include-hidden]")
	}
	return b.String()
}
