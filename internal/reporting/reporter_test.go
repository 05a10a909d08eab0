package reporting_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/reporting"
)

const testToolVersion = "v1.0.0-test"

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func outcomes() []*schemas.ScenarioOutcome {
	start := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	return []*schemas.ScenarioOutcome{
		{
			RunID:     "run-1",
			Scenario:  "checkout-form",
			Status:    schemas.StatusCompleted,
			Artifacts: []schemas.EvidenceArtifact{{Path: "out/checkout_form.png", State: schemas.CaptureSuccess, Bytes: 10}},
			StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond),
		},
		{
			RunID:         "run-2",
			Scenario:      "dark-mode",
			Status:        schemas.StatusFailed,
			FailureKind:   "AssertionTimeout",
			FailureReason: "AssertionTimeout: wait css=html: appeared but never satisfied",
			FailedStep:    `4: expect css=html to have class matching /\bdark\b/ within 2s`,
			CaptureErrors: []string{"CaptureFailure: capture out/dark-mode-error.png: disk full"},
			ReleaseError:  "browser did not exit",
			StartedAt:     start, FinishedAt: start.Add(2 * time.Second),
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		for _, path := range []string{"", "stdout"} {
			r, err := reporting.New("text", path, testToolVersion)
			require.NoError(t, err)
			assert.IsType(t, &reporting.TextReporter{}, r)
		}
	})

	t.Run("json file in a new directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reports", "outcome.json")
		r, err := reporting.New("json", path, testToolVersion)
		require.NoError(t, err)
		assert.IsType(t, &reporting.JSONReporter{}, r)
		require.NoError(t, r.Close())
		assert.FileExists(t, path)
	})

	t.Run("format is case-insensitive", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "outcome.json")
		r, err := reporting.New("JSON", path, testToolVersion)
		require.NoError(t, err)
		assert.IsType(t, &reporting.JSONReporter{}, r)
		require.NoError(t, r.Close())

		r, err = reporting.New("Text", "", testToolVersion)
		require.NoError(t, err)
		assert.IsType(t, &reporting.TextReporter{}, r)
	})

	t.Run("unsupported format creates no file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "output.sarif")
		r, err := reporting.New("sarif", path, testToolVersion)
		assert.Error(t, err)
		assert.Nil(t, r)
		assert.Contains(t, err.Error(), "unsupported output format: sarif")
		assert.NoFileExists(t, path)
	})

	t.Run("file creation failure", func(t *testing.T) {
		r, err := reporting.New("text", t.TempDir(), testToolVersion)
		assert.Error(t, err)
		assert.Nil(t, r)
		assert.Contains(t, err.Error(), "failed to create output file")
	})
}

func TestTextReporter(t *testing.T) {
	buf := &bufferCloser{}
	r := reporting.NewTextReporter(buf, false)
	for _, o := range outcomes() {
		require.NoError(t, r.Write(o))
	}
	require.NoError(t, r.Close())
	assert.True(t, buf.closed)

	out := buf.String()
	assert.Contains(t, out, "✓ PASS checkout-form (1.5s, run run-1)")
	assert.Contains(t, out, "success      out/checkout_form.png")
	assert.Contains(t, out, "✗ FAIL dark-mode (2s, run run-2)")
	assert.Contains(t, out, `step:   4: expect css=html to have class matching /\bdark\b/ within 2s`)
	assert.Contains(t, out, "reason: AssertionTimeout: wait css=html")
	assert.Contains(t, out, "capture error: CaptureFailure")
	assert.Contains(t, out, "release error: browser did not exit")
	assert.Contains(t, out, "2 scenario(s): 1 passed, 1 failed")
	assert.NotContains(t, out, "\x1b[", "no escape codes when colors are off")
}

func TestJSONReporter(t *testing.T) {
	buf := &bufferCloser{}
	r := reporting.NewJSONReporter(buf, testToolVersion)
	for _, o := range outcomes() {
		require.NoError(t, r.Write(o))
	}
	require.NoError(t, r.Close())
	assert.True(t, buf.closed)

	var report reporting.Report
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "uiverify", report.Tool)
	assert.Equal(t, testToolVersion, report.Version)
	assert.Equal(t, reporting.Summary{Total: 2, Completed: 1, Failed: 1}, report.Summary)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, "AssertionTimeout", report.Outcomes[1].FailureKind)
	assert.False(t, report.GeneratedAt.IsZero())

	// Field names are the snake_case tags CI tooling reads.
	assert.Contains(t, buf.String(), `"failure_kind": "AssertionTimeout"`)
	assert.Contains(t, buf.String(), `"capture_errors": [`)
}

func TestJSONReporter_EmptyRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	r, err := reporting.New("json", path, testToolVersion)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"outcomes": []`)
}
