package scenario

import (
	"fmt"
	"time"

	"github.com/xkilldash9x/uiverify/api/schemas"
)

// transitions lists the legal moves of a run. Failed is reachable from every
// non-terminal state and only leads to Done.
var transitions = map[schemas.ScenarioState][]schemas.ScenarioState{
	schemas.StateInit:      {schemas.StateNavigated},
	schemas.StateNavigated: {schemas.StateResolved, schemas.StateCaptured, schemas.StateNavigated},
	schemas.StateResolved:  {schemas.StateAsserted, schemas.StateActed},
	schemas.StateAsserted:  {schemas.StateResolved, schemas.StateCaptured, schemas.StateNavigated},
	schemas.StateActed:     {schemas.StateResolved, schemas.StateCaptured, schemas.StateNavigated},
	schemas.StateCaptured:  {schemas.StateResolved, schemas.StateCaptured, schemas.StateNavigated, schemas.StateDone},
	schemas.StateFailed:    {schemas.StateDone},
}

// machine tracks the state of one run and writes every transition to the outcome trace.
type machine struct {
	state   schemas.ScenarioState
	outcome *schemas.ScenarioOutcome
}

func newMachine(runID, name, baseURL string) *machine {
	return &machine{
		state: schemas.StateInit,
		outcome: &schemas.ScenarioOutcome{
			RunID:     runID,
			Scenario:  name,
			BaseURL:   baseURL,
			Status:    schemas.StatusFailed,
			StartedAt: time.Now(),
		},
	}
}

// Allowed reports whether a run may move from one state to another.
func Allowed(from, to schemas.ScenarioState) bool {
	if from == schemas.StateDone {
		return false
	}
	if to == schemas.StateFailed {
		return from != schemas.StateFailed
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// to records a transition. An illegal transition is a bug in the runner and panics.
func (m *machine) to(next schemas.ScenarioState, step string) {
	if !Allowed(m.state, next) {
		// Done must always be reachable so the session still gets released.
		if next != schemas.StateDone {
			panic(fmt.Sprintf("illegal scenario transition %s -> %s", m.state, next))
		}
	}
	m.outcome.Trace = append(m.outcome.Trace, schemas.Transition{
		From: m.state,
		To:   next,
		Step: step,
		At:   time.Now(),
	})
	m.state = next
}
