package schemas_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiverify/api/schemas"
)

func TestConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant interface{}
		expected string
	}{
		{"StatusCompleted", schemas.StatusCompleted, "completed"},
		{"StatusFailed", schemas.StatusFailed, "failed"},
		{"CaptureSuccess", schemas.CaptureSuccess, "success"},
		{"CaptureFailure", schemas.CaptureFailure, "failure"},
		{"CaptureIntermediate", schemas.CaptureIntermediate, "intermediate"},
		{"StateInit", schemas.StateInit, "init"},
		{"StateDone", schemas.StateDone, "done"},
		{"MatchExact", schemas.MatchExact, "exact"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, toString(tt.constant))
		})
	}
}

func toString(v interface{}) string {
	switch c := v.(type) {
	case schemas.OutcomeStatus:
		return string(c)
	case schemas.CaptureState:
		return string(c)
	case schemas.ScenarioState:
		return string(c)
	case schemas.MatchMode:
		return string(c)
	}
	return ""
}

func TestLocator_Validate(t *testing.T) {
	tests := []struct {
		name    string
		loc     schemas.Locator
		wantErr string
	}{
		{"role", schemas.ByRole("switch"), ""},
		{"role and name", schemas.ByRoleName("button", "Proceed to Payment"), ""},
		{"css", schemas.ByCSS("html"), ""},
		{"empty", schemas.Locator{}, "requires a role or a css selector"},
		{"both keys", schemas.Locator{Role: "button", CSS: "button"}, "cannot have both"},
		{"css with name", schemas.Locator{CSS: "html", Name: "root"}, "cannot carry an accessible name"},
		{"bad mode", schemas.Locator{Role: "button", Name: "x", MatchMode: "fuzzy"}, `unknown match mode "fuzzy"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.loc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLocator_String(t *testing.T) {
	assert.Equal(t, `role=button[name="Proceed to Payment"]`, schemas.ByRoleName("button", "Proceed to Payment").String())
	assert.Equal(t, `role=heading[name="Shipping Address"][exact]`, schemas.ByRoleName("heading", "Shipping Address").Exact().String())
	assert.Equal(t, "role=link[name=/^Docs?$/]", schemas.Locator{Role: "link", Name: "^Docs?$", MatchMode: schemas.MatchPattern}.String())
	assert.Equal(t, "role=dialog[include-hidden]", schemas.Locator{Role: "dialog", IncludeHidden: true}.String())
	assert.Equal(t, "css=html", schemas.ByCSS("html").String())
	assert.Equal(t, schemas.MatchSubstring, schemas.ByRole("switch").Mode())
}

func TestScenarioOutcome(t *testing.T) {
	started := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	o := &schemas.ScenarioOutcome{
		RunID:      "run-1",
		Scenario:   "checkout-form",
		Status:     schemas.StatusCompleted,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
	}
	assert.True(t, o.Completed())
	assert.Equal(t, 1500*time.Millisecond, o.Duration())

	data, err := json.Marshal(o)
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))

	assert.Equal(t, "completed", fields["status"])
	assert.Contains(t, fields, "run_id")
	// Failure detail is omitted from a clean outcome.
	for _, key := range []string{"failure_kind", "failure_reason", "failed_step", "capture_errors", "release_error"} {
		assert.NotContains(t, fields, key)
	}

	o.Status = schemas.StatusFailed
	assert.False(t, o.Completed())
}
