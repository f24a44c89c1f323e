package approval

import (
	"fmt"
	"time"
)

// Outcome classifies a successful decision for notification routing
type Outcome string

const (
	OutcomeAdvanced  Outcome = "advanced"
	OutcomeFinalized Outcome = "finalized"
	OutcomeRejected  Outcome = "rejected"
)

// HistoryEntry is one element of a request's append-only approval history
type HistoryEntry struct {
	Approver   string    `json:"approver"`
	Decision   string    `json:"decision"`
	Comment    string    `json:"comment"`
	ApprovedAt time.Time `json:"approvedAt"`
}

// Input carries the persisted request state and the incoming action
type Input struct {
	Status    Status
	Approvers Approvers
	Actor     string
	Action    Action
	Comment   string
	Title     string
	Submitter string
	Link      string
	Now       time.Time
}

// Decision is the result of applying an action. It is computed without I/O.
type Decision struct {
	From    Status
	To      Status
	Tier    Tier
	Outcome Outcome
	Entry   HistoryEntry
	Notify  []string
	Message string
	Link    string
}

// Machine decides approval transitions from a fixed transition table
type Machine struct {
	transitions map[Stage]map[Action]ResolveFunc
}

// NewMachine builds the standard three-tier chain. Approval moves to the next
// tier with members, skipping empty ones; rejection is allowed from every
// pending stage.
func NewMachine() *Machine {
	b := NewBuilder()
	for _, tier := range orderedTiers {
		acting := tier
		b.Configure(acting.PendingStage()).
			PermitFunc(ActionApprove, func(a Approvers, _ string) Status {
				return Status{Stage: NextStage(a, acting)}
			}).
			PermitFunc(ActionReject, func(_ Approvers, actor string) Status {
				return RejectedStatus(actor)
			})
	}
	return b.Build()
}

// Permitted returns the actions configured for a stage
func (m *Machine) Permitted(stage Stage) []Action {
	actions := make([]Action, 0, len(m.transitions[stage]))
	for _, a := range []Action{ActionApprove, ActionReject} {
		if _, ok := m.transitions[stage][a]; ok {
			actions = append(actions, a)
		}
	}
	return actions
}

// Available returns the actions the actor may take now. It is empty unless
// the actor belongs to the authoritative tier.
func (m *Machine) Available(status Status, a Approvers, actor string) []Action {
	if status.IsTerminal() || !a.Has(status.Stage.Tier(), actor) {
		return nil
	}
	return m.Permitted(status.Stage)
}

// Decide validates the actor against the authoritative tier and computes the
// next status, the history entry and the notification plan.
func (m *Machine) Decide(in Input) (*Decision, error) {
	if in.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: request is already %s", ErrInvalidAction, in.Status.Stage)
	}

	actions, ok := m.transitions[in.Status.Stage]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status.Stage)
	}
	resolve, ok := actions[in.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, in.Action)
	}

	tier := in.Status.Stage.Tier()
	if len(in.Approvers.Members(tier)) == 0 {
		return nil, fmt.Errorf("%w: %s tier is authoritative but has no members", ErrInvalidAction, tier)
	}

	if !in.Approvers.Has(tier, in.Actor) {
		if in.Approvers.TierOf(in.Actor) != TierNone {
			return nil, fmt.Errorf("%w: %s is not in the %s tier", ErrOutOfOrder, in.Actor, tier)
		}
		return nil, fmt.Errorf("%w: %s is not an approver", ErrNotAuthorized, in.Actor)
	}

	to := resolve(in.Approvers, in.Actor)

	d := &Decision{
		From: in.Status,
		To:   to,
		Tier: tier,
		Entry: HistoryEntry{
			Approver:   in.Actor,
			Comment:    in.Comment,
			ApprovedAt: in.Now,
		},
		Link: in.Link,
	}

	switch {
	case to.Stage == StageRejected:
		d.Outcome = OutcomeRejected
		d.Entry.Decision = DecisionRejected
		d.Notify = uniqueIdentities([]string{in.Submitter})
		d.Message = fmt.Sprintf("'%s' was rejected by %s", in.Title, in.Actor)
		if in.Comment != "" {
			d.Message += ": " + in.Comment
		}
	case to.Stage == StageFinalApproved:
		d.Outcome = OutcomeFinalized
		d.Entry.Decision = tier.ApprovedDecision()
		d.Notify = uniqueIdentities([]string{in.Submitter}, in.Approvers.Shared)
		d.Message = fmt.Sprintf("'%s' has been fully approved", in.Title)
	default:
		d.Outcome = OutcomeAdvanced
		d.Entry.Decision = tier.ApprovedDecision()
		d.Notify = uniqueIdentities(in.Approvers.Members(to.Stage.Tier()))
		d.Message = fmt.Sprintf("'%s' was approved by %s and awaits your approval", in.Title, in.Actor)
	}

	return d, nil
}

// ActiveMembers returns the identities allowed to act on a status
func ActiveMembers(status Status, a Approvers) []string {
	if status.IsTerminal() {
		return nil
	}
	return a.Members(status.Stage.Tier())
}

func uniqueIdentities(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, id := range list {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
