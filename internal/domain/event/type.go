package event

// Type identifies the type of domain event
type Type string

const (
	TypeFormCreated      Type = "form.created"
	TypeFormUpdated      Type = "form.updated"
	TypeFormTransitioned Type = "form.transitioned"
	TypeFormReassigned   Type = "form.reassigned"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeFormCreated,
		TypeFormUpdated,
		TypeFormTransitioned,
		TypeFormReassigned:
		return true
	default:
		return false
	}
}
