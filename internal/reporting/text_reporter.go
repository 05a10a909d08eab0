package reporting

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/xkilldash9x/uiverify/api/schemas"
)

const (
	passMark = "✓"
	failMark = "✗"
)

var (
	passColor  = color.New(color.FgGreen, color.Bold)
	failColor  = color.New(color.FgRed, color.Bold)
	grayColor  = color.New(color.Faint)
	warnColor  = color.New(color.FgYellow)
	valueColor = color.New(color.FgCyan)
)

// TextReporter prints one block per outcome as it arrives and a summary line on Close.
type TextReporter struct {
	mu        sync.Mutex
	w         io.WriteCloser
	colors    bool
	completed int
	failed    int
}

// NewTextReporter writes human readable lines to w. Colors are only used when requested
// and the terminal supports them.
func NewTextReporter(w io.WriteCloser, colors bool) *TextReporter {
	return &TextReporter{w: w, colors: colors && !color.NoColor}
}

func (r *TextReporter) paint(c *color.Color, s string) string {
	if !r.colors {
		return s
	}
	return c.Sprint(s)
}

func (r *TextReporter) Write(o *schemas.ScenarioOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	printf := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(r.w, format, args...)
		}
	}

	if o.Completed() {
		r.completed++
		printf("%s %s %s\n", r.paint(passColor, passMark+" PASS"), o.Scenario,
			r.paint(grayColor, fmt.Sprintf("(%s, run %s)", o.Duration().Round(1e6), o.RunID)))
	} else {
		r.failed++
		printf("%s %s %s\n", r.paint(failColor, failMark+" FAIL"), o.Scenario,
			r.paint(grayColor, fmt.Sprintf("(%s, run %s)", o.Duration().Round(1e6), o.RunID)))
		if o.FailedStep != "" {
			printf("    step:   %s\n", o.FailedStep)
		}
		printf("    reason: %s\n", o.FailureReason)
	}
	for _, a := range o.Artifacts {
		printf("    %s %s\n", r.paint(grayColor, fmt.Sprintf("%-12s", string(a.State))), r.paint(valueColor, a.Path))
	}
	for _, ce := range o.CaptureErrors {
		printf("    %s %s\n", r.paint(warnColor, "capture error:"), ce)
	}
	if o.ReleaseError != "" {
		printf("    %s %s\n", r.paint(warnColor, "release error:"), o.ReleaseError)
	}
	return err
}

// Close prints the summary and closes the writer.
func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := r.completed + r.failed
	summary := fmt.Sprintf("%d scenario(s): %d passed, %d failed", total, r.completed, r.failed)
	if r.failed > 0 {
		summary = r.paint(failColor, summary)
	} else {
		summary = r.paint(passColor, summary)
	}
	_, writeErr := fmt.Fprintf(r.w, "\n%s\n", summary)
	closeErr := r.w.Close()
	if writeErr != nil {
		return fmt.Errorf("failed to write summary: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
