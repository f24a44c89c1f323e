package approval

// Visibility describes how a pending request relates to an identity
type Visibility string

const (
	VisibilityNone           Visibility = ""
	VisibilityActionRequired Visibility = "action_required"
	VisibilityMonitoring     Visibility = "monitoring"
)

// Classify decides whether a non-terminal request needs action from the
// identity or is merely visible to it. Members of any later tier follow the
// request from submission; the submitter always sees it.
func Classify(status Status, a Approvers, identity, submitter string) Visibility {
	if status.IsTerminal() || identity == "" {
		return VisibilityNone
	}

	active := status.Stage.Tier()
	if a.Has(active, identity) {
		return VisibilityActionRequired
	}

	for _, t := range orderedTiers {
		if t > active && a.Has(t, identity) {
			return VisibilityMonitoring
		}
	}
	if identity == submitter {
		return VisibilityMonitoring
	}
	return VisibilityNone
}
