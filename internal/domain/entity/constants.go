package entity

import "strings"

// Status is the review status of a form. It is the single source of truth for
// what can happen next.
type Status string

const (
	StatusDraft                  Status = "DRAFT"
	StatusPendingCoordinator     Status = "PENDING_COORDINATOR"
	StatusPendingManager         Status = "PENDING_MANAGER"
	StatusPendingSeniorManager   Status = "PENDING_SENIOR_MANAGER"
	StatusPendingGovernanceCheck Status = "PENDING_GOVERNANCE_CHECK"
	StatusPendingLegal           Status = "PENDING_LEGAL"
	StatusApproved               Status = "APPROVED"
	StatusDenied                 Status = "DENIED"
)

var validStatuses = map[Status]bool{
	StatusDraft:                  true,
	StatusPendingCoordinator:     true,
	StatusPendingManager:         true,
	StatusPendingSeniorManager:   true,
	StatusPendingGovernanceCheck: true,
	StatusPendingLegal:           true,
	StatusApproved:               true,
	StatusDenied:                 true,
}

// AllStatuses lists every status in lifecycle order
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusPendingCoordinator,
		StatusPendingManager,
		StatusPendingSeniorManager,
		StatusPendingGovernanceCheck,
		StatusPendingLegal,
		StatusApproved,
		StatusDenied,
	}
}

// IsValid returns true if the status is a known review status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsPending returns true for statuses that wait on a reviewer
func (s Status) IsPending() bool {
	return strings.HasPrefix(string(s), "PENDING_")
}

// IsTerminal returns true for APPROVED and DENIED
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusDenied
}

func (s Status) String() string {
	return string(s)
}

// Role is the administrative role of an admin
type Role string

const (
	RoleCoordinator   Role = "COORDINATOR"
	RoleManager       Role = "MANAGER"
	RoleSeniorManager Role = "SENIOR_MANAGER"
	RoleGovernance    Role = "GOVERNANCE"
	RoleFull          Role = "FULL"
)

// ParseRole normalises a stored or submitted role name. LEGAL is the name the
// data request flow uses for the governance role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleCoordinator, RoleManager, RoleSeniorManager, RoleGovernance, RoleFull:
		return r, true
	case "LEGAL", "GOVERNANCE/LEGAL":
		return RoleGovernance, true
	default:
		return "", false
	}
}

func (r Role) String() string {
	return string(r)
}

// FormKind identifies which review chain a form follows
type FormKind string

const (
	FormKindOnboardRequest FormKind = "onboard-request"
	FormKindDataRequest    FormKind = "data-request"
)

// ParseFormKind accepts the URL segment form of a kind
func ParseFormKind(s string) (FormKind, bool) {
	switch k := FormKind(strings.ToLower(strings.TrimSpace(s))); k {
	case FormKindOnboardRequest, FormKindDataRequest:
		return k, true
	default:
		return "", false
	}
}

func (k FormKind) String() string {
	return string(k)
}

// LedgerAction is what a reviewer did in a ledger entry
type LedgerAction string

const (
	LedgerActionSubmitted LedgerAction = "SUBMITTED"
	LedgerActionApproved  LedgerAction = "APPROVED"
	LedgerActionDenied    LedgerAction = "DENIED"
)

// Category classifies a notification for display
type Category string

const (
	CategoryInfo    Category = "INFO"
	CategorySuccess Category = "SUCCESS"
	CategoryWarning Category = "WARNING"
)
