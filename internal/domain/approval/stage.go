package approval

import (
	"fmt"
	"regexp"
	"strings"
)

// Stage is the position of a request in the approval chain
type Stage string

const (
	StageTier1Pending  Stage = "TIER1_PENDING"
	StageTier2Pending  Stage = "TIER2_PENDING"
	StageTier3Pending  Stage = "TIER3_PENDING"
	StageFinalApproved Stage = "FINAL_APPROVED"
	StageRejected      Stage = "REJECTED"
)

var validStages = map[Stage]bool{
	StageTier1Pending:  true,
	StageTier2Pending:  true,
	StageTier3Pending:  true,
	StageFinalApproved: true,
	StageRejected:      true,
}

var terminalStages = map[Stage]bool{
	StageFinalApproved: true,
	StageRejected:      true,
}

// IsTerminal returns true if no transition leaves the stage
func (s Stage) IsTerminal() bool {
	return terminalStages[s]
}

// IsValid returns true if the stage is one of the defined stages
func (s Stage) IsValid() bool {
	return validStages[s]
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// Tier returns the tier whose members may act in this stage
func (s Stage) Tier() Tier {
	switch s {
	case StageTier1Pending:
		return TierFirst
	case StageTier2Pending:
		return TierSecond
	case StageTier3Pending:
		return TierThird
	default:
		return TierNone
	}
}

// Status is the persisted approval state. RejectedBy is set only for StageRejected.
type Status struct {
	Stage      Stage
	RejectedBy string

	// tier a legacy "N차 승인" status says has approved; cleared by Resolve
	approvedTier Tier
}

const rejectedPrefix = "REJECTED:"

// PendingStatus returns the pending status for a tier
func PendingStatus(t Tier) Status {
	return Status{Stage: t.PendingStage()}
}

// FinalStatus returns the final approved status
func FinalStatus() Status {
	return Status{Stage: StageFinalApproved}
}

// RejectedStatus returns a rejected status carrying the rejecting actor
func RejectedStatus(actor string) Status {
	return Status{Stage: StageRejected, RejectedBy: actor}
}

// IsTerminal reports whether the status is final approved or rejected
func (s Status) IsTerminal() bool {
	return s.Stage.IsTerminal()
}

// String encodes the status in its canonical stored form
func (s Status) String() string {
	if s.Stage == StageRejected && s.RejectedBy != "" {
		return rejectedPrefix + s.RejectedBy
	}
	return string(s.Stage)
}

// MarshalText stores the canonical form
func (s Status) MarshalText() ([]byte, error) {
	if !s.Stage.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, s.Stage)
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts canonical and legacy spellings
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Status strings written by earlier releases. Parenthesised rejections
// ("반려(홍길동)") are handled separately.
var legacyStatuses = map[string]Stage{
	"대기":       StageTier1Pending,
	"1차 결재 대기": StageTier1Pending,
	"pending":  StageTier1Pending,
	"2차 결재 대기": StageTier2Pending,
	"3차 결재 대기": StageTier3Pending,
	"승인":       StageFinalApproved,
	"최종 승인":    StageFinalApproved,
	"승인 완료":    StageFinalApproved,
	"approved": StageFinalApproved,
	"반려":       StageRejected,
	"rejected": StageRejected,
}

// Legacy "tier N approved" markers. The next stage depends on which later
// tiers have members, so these stay unresolved until Resolve sees the approvers.
var legacyApproved = map[string]Tier{
	"1차 승인": TierFirst,
	"2차 승인": TierSecond,
}

var legacyRejected = regexp.MustCompile(`^반려\s*\((.*)\)$`)

// ParseStatus normalizes a stored status string into a Status
func ParseStatus(raw string) (Status, error) {
	value := strings.TrimSpace(raw)

	if stage := Stage(value); stage.IsValid() {
		return Status{Stage: stage}, nil
	}
	if strings.HasPrefix(value, rejectedPrefix) {
		return RejectedStatus(strings.TrimPrefix(value, rejectedPrefix)), nil
	}
	if m := legacyRejected.FindStringSubmatch(value); m != nil {
		return RejectedStatus(strings.TrimSpace(m[1])), nil
	}
	if lower := strings.ToLower(value); strings.HasPrefix(lower, "rejected:") {
		return RejectedStatus(value[len("rejected:"):]), nil
	}
	if tier, ok := legacyApproved[value]; ok {
		return Status{Stage: (tier + 1).PendingStage(), approvedTier: tier}, nil
	}
	if stage, ok := legacyStatuses[value]; ok {
		return Status{Stage: stage}, nil
	}
	if stage, ok := legacyStatuses[strings.ToLower(value)]; ok {
		return Status{Stage: stage}, nil
	}

	return Status{}, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// Resolve places a legacy "tier N approved" status on the next tier with
// members. Other statuses are returned unchanged.
func (s Status) Resolve(a Approvers) Status {
	if s.approvedTier == TierNone {
		return s
	}
	return Status{Stage: NextStage(a, s.approvedTier)}
}
