// Package locator resolves semantic locators against the live state of a page.
//
// Resolution is a single query: it never waits and never caches. An empty result is a
// legitimate answer (the element may not have rendered yet); only ResolveOne, which
// requires exactly one element, turns emptiness or multiplicity into a failure.
package locator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/failure"
)

// Set is the result of resolving a locator: matching elements in document order.
type Set []schemas.ElementInfo

// Names returns the accessible names of the set, for diagnostics.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, el := range s {
		names[i] = el.Name
	}
	return names
}

// Check reports whether loc can be resolved at all: it is well formed and its name
// pattern, if any, compiles. It does not touch a page.
func Check(loc schemas.Locator) error {
	_, err := compile(loc)
	return err
}

func compile(loc schemas.Locator) (func(string) bool, error) {
	if err := loc.Validate(); err != nil {
		return nil, failure.Wrap(failure.Resolution, "resolve", loc.String(), err)
	}
	match, err := nameMatcher(loc)
	if err != nil {
		return nil, failure.Wrap(failure.Resolution, "resolve", loc.String(), err)
	}
	return match, nil
}

// Resolve queries the page for every element that matches loc right now.
func Resolve(ctx context.Context, page schemas.Page, loc schemas.Locator) (Set, error) {
	match, err := compile(loc)
	if err != nil {
		return nil, err
	}

	candidates, err := page.Candidates(ctx, loc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, failure.Wrap(failure.Resolution, "resolve", loc.String(), err)
	}

	set := make(Set, 0, len(candidates))
	for _, el := range candidates {
		if match(el.Name) {
			set = append(set, el)
		}
	}
	return set, nil
}

// ResolveOne resolves loc and requires exactly one match.
func ResolveOne(ctx context.Context, page schemas.Page, loc schemas.Locator) (schemas.ElementInfo, error) {
	set, err := Resolve(ctx, page, loc)
	if err != nil {
		return schemas.ElementInfo{}, err
	}
	switch len(set) {
	case 0:
		return schemas.ElementInfo{}, failure.New(failure.Resolution, "resolve", loc.String(), "no element matches")
	case 1:
		return set[0], nil
	default:
		return schemas.ElementInfo{}, failure.New(failure.Ambiguity, "resolve", loc.String(),
			fmt.Sprintf("%d elements match: %s", len(set), quoteAll(set.Names())))
	}
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}

// normalize collapses runs of whitespace and trims, the way accessible names are computed.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var (
	patternCacheMu sync.Mutex
	patternCache   = make(map[string]*regexp.Regexp)
)

func compilePattern(expr string) (*regexp.Regexp, error) {
	patternCacheMu.Lock()
	defer patternCacheMu.Unlock()
	if re, ok := patternCache[expr]; ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid name pattern %q: %w", expr, err)
	}
	patternCache[expr] = re
	return re, nil
}

// nameMatcher builds the accessible name predicate for loc. A locator without a name
// accepts every candidate.
func nameMatcher(loc schemas.Locator) (func(string) bool, error) {
	if loc.Name == "" {
		return func(string) bool { return true }, nil
	}
	switch loc.Mode() {
	case schemas.MatchExact:
		want := normalize(loc.Name)
		return func(name string) bool { return normalize(name) == want }, nil
	case schemas.MatchPattern:
		re, err := compilePattern(loc.Name)
		if err != nil {
			return nil, err
		}
		return re.MatchString, nil
	default:
		want := strings.ToLower(normalize(loc.Name))
		return func(name string) bool {
			return strings.Contains(strings.ToLower(normalize(name)), want)
		}, nil
	}
}
