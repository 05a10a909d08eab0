package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/uiverify/internal/locator"
	"github.com/xkilldash9x/uiverify/internal/waiter"
)

// fileScenario is the YAML shape of a scenario. A file may hold several documents
// separated by "---".
type fileScenario struct {
	Name            string     `yaml:"name"`
	Description     string     `yaml:"description,omitempty"`
	Path            string     `yaml:"path"`
	SuccessArtifact string     `yaml:"success_artifact,omitempty"`
	FailureArtifact string     `yaml:"failure_artifact,omitempty"`
	Steps           []fileStep `yaml:"steps"`
}

// fileStep sets exactly one of Expect, Click, Capture or Navigate.
//
//	- expect: role=heading[name="Shipping Address"]
//	  to: visible
//	  timeout: 10s
//	- expect: css=html
//	  to: have-class
//	  class: '\bdark\b'
type fileStep struct {
	Expect   string `yaml:"expect,omitempty"`
	Click    string `yaml:"click,omitempty"`
	Capture  string `yaml:"capture,omitempty"`
	Navigate string `yaml:"navigate,omitempty"`

	// To is visible (the default), hidden or have-class.
	To      string        `yaml:"to,omitempty"`
	Class   string        `yaml:"class,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LoadFile reads every scenario in a YAML file. Unknown fields are rejected so typos
// surface at load time instead of as a silently skipped step.
func LoadFile(path string) ([]Scenario, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve scenario file path '%s': %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenarios, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", expanded, err)
	}
	return scenarios, nil
}

// Parse decodes one or more YAML scenario documents.
func Parse(data []byte) ([]Scenario, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var out []Scenario
	seen := make(map[string]bool)
	for doc := 0; ; doc++ {
		var fs fileScenario
		if err := decoder.Decode(&fs); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		sc, err := fs.build()
		if err != nil {
			return nil, fmt.Errorf("invalid scenario (document %d): %w", doc+1, err)
		}
		if seen[sc.Name] {
			return nil, fmt.Errorf("duplicate scenario name %q", sc.Name)
		}
		seen[sc.Name] = true
		out = append(out, sc)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no scenarios defined")
	}
	return out, nil
}

func (fs fileScenario) build() (Scenario, error) {
	sc := Scenario{
		Name:            fs.Name,
		Description:     fs.Description,
		Path:            fs.Path,
		SuccessArtifact: fs.SuccessArtifact,
		FailureArtifact: fs.FailureArtifact,
	}
	for i, raw := range fs.Steps {
		step, err := raw.build()
		if err != nil {
			return Scenario{}, fmt.Errorf("steps[%d]: %w", i, err)
		}
		sc.Steps = append(sc.Steps, step)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

func (fs fileStep) build() (Step, error) {
	set := 0
	for _, v := range []string{fs.Expect, fs.Click, fs.Capture, fs.Navigate} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return Step{}, fmt.Errorf("a step needs exactly one of expect, click, capture or navigate")
	}
	if fs.Expect == "" && (fs.To != "" || fs.Class != "" || fs.Timeout != 0) {
		return Step{}, fmt.Errorf("to, class and timeout only apply to expect steps")
	}

	switch {
	case fs.Click != "":
		loc, err := locator.Parse(fs.Click)
		if err != nil {
			return Step{}, err
		}
		return Click(loc), nil
	case fs.Capture != "":
		return Capture(fs.Capture), nil
	case fs.Navigate != "":
		return Navigate(fs.Navigate), nil
	}

	loc, err := locator.Parse(fs.Expect)
	if err != nil {
		return Step{}, err
	}
	var cond waiter.Condition
	switch strings.ToLower(fs.To) {
	case "", "visible":
		cond = waiter.Visible()
	case "hidden":
		cond = waiter.Hidden()
	case "have-class":
		if fs.Class == "" {
			return Step{}, fmt.Errorf("have-class needs a class pattern")
		}
		if cond, err = waiter.HasClass(fs.Class); err != nil {
			return Step{}, err
		}
	default:
		return Step{}, fmt.Errorf("unknown condition %q (want visible, hidden or have-class)", fs.To)
	}
	if fs.Class != "" && strings.ToLower(fs.To) != "have-class" {
		return Step{}, fmt.Errorf("class is only valid with to: have-class")
	}
	return Expect(loc, cond, fs.Timeout), nil
}
