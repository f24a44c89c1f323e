package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestCreated   Type = "request.created"
	TypeRequestApproved  Type = "request.approved"
	TypeRequestFinalized Type = "request.finalized"
	TypeRequestRejected  Type = "request.rejected"
	TypeRequestCancelled Type = "request.cancelled"
	TypeRequestReminder  Type = "request.reminder"
)

// Types returns every defined event type
func Types() []Type {
	return []Type{
		TypeRequestCreated,
		TypeRequestApproved,
		TypeRequestFinalized,
		TypeRequestRejected,
		TypeRequestCancelled,
		TypeRequestReminder,
	}
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestCreated,
		TypeRequestApproved,
		TypeRequestFinalized,
		TypeRequestRejected,
		TypeRequestCancelled,
		TypeRequestReminder:
		return true
	default:
		return false
	}
}
