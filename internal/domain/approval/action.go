package approval

import "fmt"

// Action is the decision an approver submits
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// History decision labels
const (
	DecisionTier1Approved = "tier1_approved"
	DecisionTier2Approved = "tier2_approved"
	DecisionTier3Approved = "tier3_approved"
	DecisionRejected      = "rejected"
)

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// ParseAction validates an action received from a caller
func ParseAction(raw string) (Action, error) {
	switch a := Action(raw); a {
	case ActionApprove, ActionReject:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
	}
}
