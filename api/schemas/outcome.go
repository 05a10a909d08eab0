package schemas

import (
	"time"
)

// -- Outcome Schemas --

// OutcomeStatus is the terminal status of one scenario run.
type OutcomeStatus string

const (
	StatusCompleted OutcomeStatus = "completed"
	StatusFailed    OutcomeStatus = "failed"
)

// CaptureState records which outcome an evidence artifact documents.
type CaptureState string

const (
	CaptureSuccess      CaptureState = "success"
	CaptureFailure      CaptureState = "failure"
	CaptureIntermediate CaptureState = "intermediate"
)

// EvidenceArtifact is a screenshot written to disk during a run.
type EvidenceArtifact struct {
	Path       string       `json:"path"`
	State      CaptureState `json:"state"`
	CapturedAt time.Time    `json:"captured_at"`
	Bytes      int          `json:"bytes"`
}

// ScenarioState names a node of the scenario state machine.
type ScenarioState string

const (
	StateInit      ScenarioState = "init"
	StateNavigated ScenarioState = "navigated"
	StateResolved  ScenarioState = "resolved"
	StateAsserted  ScenarioState = "asserted"
	StateActed     ScenarioState = "acted"
	StateCaptured  ScenarioState = "captured"
	StateFailed    ScenarioState = "failed"
	StateDone      ScenarioState = "done"
)

// Transition is one recorded state change.
type Transition struct {
	From ScenarioState `json:"from"`
	To   ScenarioState `json:"to"`
	Step string        `json:"step,omitempty"`
	At   time.Time     `json:"at"`
}

// ScenarioOutcome is produced exactly once per run.
type ScenarioOutcome struct {
	RunID         string             `json:"run_id"`
	Scenario      string             `json:"scenario"`
	BaseURL       string             `json:"base_url"`
	Status        OutcomeStatus      `json:"status"`
	FailureKind   string             `json:"failure_kind,omitempty"`
	FailureReason string             `json:"failure_reason,omitempty"`
	FailedStep    string             `json:"failed_step,omitempty"`
	Artifacts     []EvidenceArtifact `json:"artifacts,omitempty"`
	CaptureErrors []string           `json:"capture_errors,omitempty"`
	ReleaseError  string             `json:"release_error,omitempty"`
	Trace         []Transition       `json:"trace,omitempty"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    time.Time          `json:"finished_at"`
}

// Completed reports whether the scenario reached Done without failing.
func (o *ScenarioOutcome) Completed() bool {
	return o.Status == StatusCompleted
}

// Duration is the wall time between start and finish.
func (o *ScenarioOutcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}
