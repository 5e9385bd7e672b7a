package workflow

import (
	"fmt"

	"github.com/garyjia/partner-review/internal/domain/entity"
)

// MinScore and MaxScore bound the governance and legal scores
const (
	MinScore = 1
	MaxScore = 100
)

// Stage is a pending status that waits on one role
type Stage struct {
	Status entity.Status
	Role   entity.Role
	Scope  ScopeRule
}

// Chain describes a form kind's review chain. Both form kinds are instances
// of the same shape and differ only in stage names and score field.
type Chain struct {
	Kind entity.FormKind
	// AuthorRoles may submit a DRAFT or resubmit a DENIED form they created.
	// Empty means any role.
	AuthorRoles []entity.Role
	// AuthorScopes apply on top of ScopeCreator when the author submits
	AuthorScopes []ScopeRule
	// Intake is the claim stage for unauthenticated submissions, if the kind has one
	Intake *Stage
	// Stages are the ordered review stages after submission. The last one
	// requires a score and leads to APPROVED.
	Stages []Stage
	// ScoreField names the score the last stage records
	ScoreField string
}

// OnboardRequestChain is PENDING_COORDINATOR / DRAFT -> MANAGER -> SENIOR_MANAGER -> GOVERNANCE_CHECK -> APPROVED
var OnboardRequestChain = Chain{
	Kind:         entity.FormKindOnboardRequest,
	AuthorRoles:  []entity.Role{entity.RoleCoordinator, entity.RoleFull},
	AuthorScopes: []ScopeRule{ScopeRegionSBU},
	Intake: &Stage{
		Status: entity.StatusPendingCoordinator,
		Role:   entity.RoleCoordinator,
		Scope:  ScopeRegionSBU,
	},
	Stages: []Stage{
		{Status: entity.StatusPendingManager, Role: entity.RoleManager, Scope: ScopeGlobal},
		{Status: entity.StatusPendingSeniorManager, Role: entity.RoleSeniorManager, Scope: ScopeRegion},
		{Status: entity.StatusPendingGovernanceCheck, Role: entity.RoleGovernance, Scope: ScopeGlobal},
	},
	ScoreField: "governanceScore",
}

// DataRequestChain is DRAFT -> MANAGER -> SENIOR_MANAGER -> LEGAL -> APPROVED
var DataRequestChain = Chain{
	Kind: entity.FormKindDataRequest,
	Stages: []Stage{
		{Status: entity.StatusPendingManager, Role: entity.RoleManager, Scope: ScopeGlobal},
		{Status: entity.StatusPendingSeniorManager, Role: entity.RoleSeniorManager, Scope: ScopeRegion},
		{Status: entity.StatusPendingLegal, Role: entity.RoleGovernance, Scope: ScopeGlobal},
	},
	ScoreField: "legalScore",
}

// BuildTable turns a chain into its transition table
func BuildTable(chain Chain) *Table {
	if len(chain.Stages) == 0 {
		panic(fmt.Sprintf("chain %s has no stages", chain.Kind))
	}

	builder := newTableBuilder(chain.Kind, chain.ScoreField)
	first := chain.Stages[0].Status

	author := Requirement{
		Roles:  chain.AuthorRoles,
		Scopes: append([]ScopeRule{ScopeCreator}, chain.AuthorScopes...),
	}
	builder.Configure(entity.StatusDraft).Permit(ActionSubmit, first, author)
	// A denied form re-enters at the first review stage; it already has a claimant.
	builder.Configure(entity.StatusDenied).Permit(ActionSubmit, first, author)

	if chain.Intake != nil {
		builder.addStage(*chain.Intake)
		builder.Configure(chain.Intake.Status).
			PermitClaim(ActionSubmit, first, stageRequirement(*chain.Intake)).
			Permit(ActionDeny, entity.StatusDenied, denyRequirement(*chain.Intake))
	}

	for i, stage := range chain.Stages {
		builder.addStage(stage)

		next := entity.StatusApproved
		approve := stageRequirement(stage)
		if i+1 < len(chain.Stages) {
			next = chain.Stages[i+1].Status
		} else {
			approve.RequireScore = true
		}

		builder.Configure(stage.Status).
			Permit(ActionSubmit, next, approve).
			Permit(ActionDeny, entity.StatusDenied, denyRequirement(stage))
	}

	return builder.Build()
}

func stageRequirement(stage Stage) Requirement {
	return Requirement{
		Roles:  []entity.Role{stage.Role},
		Scopes: []ScopeRule{stage.Scope},
	}
}

func denyRequirement(stage Stage) Requirement {
	req := stageRequirement(stage)
	req.RequireComments = true
	return req
}

// Tables holds the transition table of every form kind
type Tables struct {
	byKind map[entity.FormKind]*Table
}

// NewTables builds tables for the given chains
func NewTables(chains ...Chain) *Tables {
	t := &Tables{byKind: make(map[entity.FormKind]*Table, len(chains))}
	for _, chain := range chains {
		t.byKind[chain.Kind] = BuildTable(chain)
	}
	return t
}

// DefaultTables returns the onboard request and data request tables
func DefaultTables() *Tables {
	return NewTables(OnboardRequestChain, DataRequestChain)
}

// For returns the table of kind
func (t *Tables) For(kind entity.FormKind) (*Table, bool) {
	table, ok := t.byKind[kind]
	return table, ok
}
