package reporting

import (
	"fmt"
	"io"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/uiverify/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report is the document written by the JSON reporter.
type Report struct {
	Tool        string                     `json:"tool"`
	Version     string                     `json:"version"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Summary     Summary                    `json:"summary"`
	Outcomes    []*schemas.ScenarioOutcome `json:"outcomes"`
}

// Summary counts outcomes by status.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// JSONReporter buffers outcomes and writes a single JSON document on Close.
// It is thread safe.
type JSONReporter struct {
	mu     sync.Mutex
	writer io.WriteCloser
	report Report
}

// NewJSONReporter creates a reporter that writes to writer and takes ownership of it.
func NewJSONReporter(writer io.WriteCloser, toolVersion string) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		report: Report{
			Tool:     "uiverify",
			Version:  toolVersion,
			Outcomes: []*schemas.ScenarioOutcome{},
		},
	}
}

func (r *JSONReporter) Write(o *schemas.ScenarioOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report.Outcomes = append(r.report.Outcomes, o)
	r.report.Summary.Total++
	if o.Completed() {
		r.report.Summary.Completed++
	} else {
		r.report.Summary.Failed++
	}
	return nil
}

// Close encodes the report and closes the writer.
func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report.GeneratedAt = time.Now().UTC()
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(r.report)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		return fmt.Errorf("failed to encode report: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
