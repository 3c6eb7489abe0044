/*
lifecycle.go - Payroll cycle status state machine

PURPOSE:
  Defines the cycle statuses, the actions that move between them, and the
  single transition table every mutation is checked against. Keeping the
  table in one place makes an illegal transition a one-point runtime check
  instead of scattered status conditionals.

LIFECYCLE:

        submit              approve             process
  draft ──────▶ pending_approval ──────▶ approved ──────▶ processing ──▶ completed
    ▲                  │
    └──────────────────┘
          reject (stores rejected_by/at/reason)

  The reject edge is the only backward transition. `completed` is terminal:
  months strictly before the current month are auto-completed when listed or
  queried, and a cycle created for a past month lands in `completed`
  directly (there is no approval value in gating data that already occurred).

IMMUTABILITY:
  Once a cycle reaches approved, processing, or completed, its payroll items
  are read-only. Mutation attempts are rejected with the current status.

SEE ALSO:
  - engine.go: CycleService applies the table and its guards
*/
package payroll

// =============================================================================
// STATUS + ACTIONS
// =============================================================================

type CycleStatus string

const (
	CycleDraft           CycleStatus = "draft"
	CyclePendingApproval CycleStatus = "pending_approval"
	CycleApproved        CycleStatus = "approved"
	CycleProcessing      CycleStatus = "processing"
	CycleCompleted       CycleStatus = "completed"
)

type CycleAction string

const (
	ActionSubmit  CycleAction = "submit"
	ActionApprove CycleAction = "approve"
	ActionReject  CycleAction = "reject"
	ActionProcess CycleAction = "process"
)

// =============================================================================
// TRANSITION TABLE
// =============================================================================

// transitions maps current status -> allowed action -> next status.
// Anything absent from the table is illegal.
var transitions = map[CycleStatus]map[CycleAction]CycleStatus{
	CycleDraft: {
		ActionSubmit: CyclePendingApproval,
	},
	CyclePendingApproval: {
		ActionApprove: CycleApproved,
		ActionReject:  CycleDraft,
	},
	CycleApproved: {
		ActionProcess: CycleProcessing,
	},
}

// NextStatus returns the status an action leads to from the given status, or
// an InvalidTransitionError when the action is not in the table.
func NextStatus(cycleID CycleID, from CycleStatus, action CycleAction) (CycleStatus, error) {
	if next, ok := transitions[from][action]; ok {
		return next, nil
	}
	return from, &InvalidTransitionError{CycleID: cycleID, From: from, Action: action}
}

// AllowedActions returns the actions legal from a status (for API discovery).
func AllowedActions(from CycleStatus) []CycleAction {
	var actions []CycleAction
	for _, a := range []CycleAction{ActionSubmit, ActionApprove, ActionReject, ActionProcess} {
		if _, ok := transitions[from][a]; ok {
			actions = append(actions, a)
		}
	}
	return actions
}

// Immutable reports whether payroll items under a cycle in this status are
// read-only.
func (s CycleStatus) Immutable() bool {
	switch s {
	case CycleApproved, CycleProcessing, CycleCompleted:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status can never change again.
func (s CycleStatus) Terminal() bool { return s == CycleCompleted }
