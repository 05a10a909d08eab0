package locator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xkilldash9x/uiverify/api/schemas"
)

// Parse reads the textual locator form used by scenario files and the command line:
//
//	role=button[name="Proceed to Payment"]
//	role=button[name="Pay"][exact]
//	role=heading[name=/Ship+ing/]
//	role=dialog[include-hidden]
//	css=html
//
// The output of schemas.Locator.String parses back to an equal locator.
func Parse(text string) (schemas.Locator, error) {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "css="):
		sel := strings.TrimSpace(strings.TrimPrefix(text, "css="))
		if sel == "" {
			return schemas.Locator{}, fmt.Errorf("locator %q: empty css selector", text)
		}
		return schemas.ByCSS(sel), nil
	case strings.HasPrefix(text, "role="):
	default:
		return schemas.Locator{}, fmt.Errorf("locator %q: must start with role= or css=", text)
	}

	rest := strings.TrimPrefix(text, "role=")
	end := strings.IndexByte(rest, '[')
	if end < 0 {
		end = len(rest)
	}
	loc := schemas.Locator{Role: strings.TrimSpace(rest[:end])}
	if loc.Role == "" {
		return schemas.Locator{}, fmt.Errorf("locator %q: empty role", text)
	}
	rest = rest[end:]

	for rest != "" {
		if rest[0] != '[' {
			return schemas.Locator{}, fmt.Errorf("locator %q: unexpected %q", text, rest)
		}
		body, tail, err := splitBracket(rest)
		if err != nil {
			return schemas.Locator{}, fmt.Errorf("locator %q: %w", text, err)
		}
		rest = tail

		switch {
		case body == "exact":
			loc.MatchMode = schemas.MatchExact
		case body == "include-hidden":
			loc.IncludeHidden = true
		case strings.HasPrefix(body, "name="):
			if loc.Name != "" {
				return schemas.Locator{}, fmt.Errorf("locator %q: name given twice", text)
			}
			name, mode, err := parseName(strings.TrimPrefix(body, "name="))
			if err != nil {
				return schemas.Locator{}, fmt.Errorf("locator %q: %w", text, err)
			}
			loc.Name = name
			if loc.MatchMode != schemas.MatchExact || mode == schemas.MatchPattern {
				loc.MatchMode = mode
			}
		default:
			return schemas.Locator{}, fmt.Errorf("locator %q: unknown option [%s]", text, body)
		}
	}

	if loc.MatchMode == schemas.MatchExact && loc.Name == "" {
		return schemas.Locator{}, fmt.Errorf("locator %q: [exact] requires a name", text)
	}
	return loc, loc.Validate()
}

// MustParse is Parse for locators known at compile time.
func MustParse(text string) schemas.Locator {
	loc, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return loc
}

// splitBracket returns the contents of the leading [...] group and the remaining text.
// Brackets inside a quoted string or a /pattern/ do not terminate the group.
func splitBracket(s string) (string, string, error) {
	var quote byte
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0 && c == '\\':
			i++
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
		case c == '"' || (c == '/' && strings.HasSuffix(s[:i], "name=")):
			quote = c
		case c == ']':
			return s[1:i], s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("unterminated [")
}

func parseName(v string) (string, schemas.MatchMode, error) {
	switch {
	case len(v) >= 2 && v[0] == '"':
		name, err := strconv.Unquote(v)
		if err != nil {
			return "", "", fmt.Errorf("bad quoted name %s: %w", v, err)
		}
		return name, schemas.MatchSubstring, nil
	case len(v) >= 2 && v[0] == '/' && v[len(v)-1] == '/':
		expr := v[1 : len(v)-1]
		if _, err := compilePattern(expr); err != nil {
			return "", "", err
		}
		return expr, schemas.MatchPattern, nil
	case v == "":
		return "", "", fmt.Errorf("empty name")
	default:
		// Bare names are accepted for convenience on the command line.
		return v, schemas.MatchSubstring, nil
	}
}
