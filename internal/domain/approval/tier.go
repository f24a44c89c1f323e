package approval

// Tier is one ordered level of required approval
type Tier int

const (
	TierNone Tier = iota
	TierFirst
	TierSecond
	TierThird
)

var orderedTiers = []Tier{TierFirst, TierSecond, TierThird}

// String returns the tier name used in routing files and API responses
func (t Tier) String() string {
	switch t {
	case TierFirst:
		return "first"
	case TierSecond:
		return "second"
	case TierThird:
		return "third"
	default:
		return "none"
	}
}

// PendingStage returns the stage in which this tier is authoritative
func (t Tier) PendingStage() Stage {
	switch t {
	case TierFirst:
		return StageTier1Pending
	case TierSecond:
		return StageTier2Pending
	case TierThird:
		return StageTier3Pending
	default:
		return StageFinalApproved
	}
}

// ApprovedDecision returns the history label recorded when this tier approves
func (t Tier) ApprovedDecision() string {
	switch t {
	case TierFirst:
		return DecisionTier1Approved
	case TierSecond:
		return DecisionTier2Approved
	case TierThird:
		return DecisionTier3Approved
	default:
		return ""
	}
}

// Approvers assigns identities to tiers. Shared members are notified of
// outcomes but never act.
type Approvers struct {
	First  []string `json:"first" yaml:"first"`
	Second []string `json:"second" yaml:"second"`
	Third  []string `json:"third" yaml:"third"`
	Shared []string `json:"shared" yaml:"shared"`
}

// Members returns the identities assigned to a tier
func (a Approvers) Members(t Tier) []string {
	switch t {
	case TierFirst:
		return a.First
	case TierSecond:
		return a.Second
	case TierThird:
		return a.Third
	default:
		return nil
	}
}

// Has reports whether the identity is a member of the tier
func (a Approvers) Has(t Tier, identity string) bool {
	for _, m := range a.Members(t) {
		if m == identity {
			return true
		}
	}
	return false
}

// TierOf returns the first tier, in order first, second, third, containing the identity
func (a Approvers) TierOf(identity string) Tier {
	for _, t := range orderedTiers {
		if a.Has(t, identity) {
			return t
		}
	}
	return TierNone
}

// HasApprovers reports whether any tier has members
func (a Approvers) HasApprovers() bool {
	return NextTier(a, TierNone) != TierNone
}

// NextTier returns the first non-empty tier after current, or TierNone
// when no tier remains. TierNone as current starts from the first tier.
func NextTier(a Approvers, current Tier) Tier {
	for _, t := range orderedTiers {
		if t <= current {
			continue
		}
		if len(a.Members(t)) > 0 {
			return t
		}
	}
	return TierNone
}

// NextStage returns the stage reached when the current tier approves
func NextStage(a Approvers, current Tier) Stage {
	return NextTier(a, current).PendingStage()
}

// InitialStatus returns the status of a freshly submitted request
func InitialStatus(a Approvers) (Status, error) {
	first := NextTier(a, TierNone)
	if first == TierNone {
		return Status{}, ErrNoApprovers
	}
	return PendingStatus(first), nil
}
