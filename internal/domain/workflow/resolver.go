package workflow

import (
	"strings"

	"github.com/garyjia/partner-review/internal/domain/entity"
)

var roleLabels = map[entity.Role]string{
	entity.RoleCoordinator:   "coordinators",
	entity.RoleManager:       "managers",
	entity.RoleSeniorManager: "senior managers",
	entity.RoleGovernance:    "governance and legal reviewers",
	entity.RoleFull:          "full administrators",
}

// Resolver decides which rule applies to a form and whether an admin may fire
// it. It works on plain values and performs no I/O.
type Resolver struct {
	tables *Tables
}

// NewResolver creates a resolver over the given tables
func NewResolver(tables *Tables) *Resolver {
	return &Resolver{tables: tables}
}

// Tables returns the transition tables the resolver consults
func (r *Resolver) Tables() *Tables {
	return r.tables
}

// Rule returns the row for action at the form's current status
func (r *Resolver) Rule(form *entity.Form, action Action) (Rule, error) {
	table, ok := r.tables.For(form.Kind)
	if !ok {
		return Rule{}, InvalidTransition("Unknown form kind %q", form.Kind)
	}
	rule, ok := table.Lookup(form.Status, action)
	if !ok {
		return Rule{}, InvalidTransition("Cannot %s a form that is %s", action, form.Status)
	}
	return rule, nil
}

// Authorize resolves the rule for action and checks the admin against it
func (r *Resolver) Authorize(admin *entity.Admin, form *entity.Form, action Action) (Rule, error) {
	rule, err := r.Rule(form, action)
	if err != nil {
		return Rule{}, err
	}
	if err := Authorize(admin, form, rule); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// CanAct reports whether the admin may move the form forward from its current status
func (r *Resolver) CanAct(admin *entity.Admin, form *entity.Form) bool {
	_, err := r.Authorize(admin, form, ActionSubmit)
	return err == nil
}

// AuthorizeAuthor checks that admin may author a form of its kind in its
// region. The form's creator must already be set to admin.
func (r *Resolver) AuthorizeAuthor(admin *entity.Admin, form *entity.Form) error {
	if admin == nil {
		return Forbidden("You must be signed in to create forms")
	}
	table, ok := r.tables.For(form.Kind)
	if !ok {
		return InvalidTransition("Unknown form kind %q", form.Kind)
	}
	rule, ok := table.Lookup(entity.StatusDraft, ActionSubmit)
	if !ok {
		return InvalidTransition("%s forms cannot be drafted", form.Kind)
	}
	if len(rule.Roles) > 0 && !containsRole(rule.Roles, admin.Role) {
		return Forbidden("Only %s can create %s forms", describeRoles(rule.Roles), form.Kind)
	}
	for _, scope := range rule.Scopes {
		if err := checkScope(admin, form, scope); err != nil {
			return err
		}
	}
	return nil
}

// Authorize checks admin against one rule. FULL acts at every pending stage
// regardless of scope. Creator-only rows still require FULL to be the creator.
// A role without a row at the form's status is an invalid transition, which
// is also what a repeated action sees once the form has moved on. Scope
// failures are Forbidden.
func Authorize(admin *entity.Admin, form *entity.Form, rule Rule) error {
	if admin == nil {
		return Forbidden("You must be signed in to review forms")
	}

	if admin.Role == entity.RoleFull && rule.From.IsPending() {
		return nil
	}

	if len(rule.Roles) > 0 && !containsRole(rule.Roles, admin.Role) {
		return InvalidTransition("Only %s can %s at this stage", describeRoles(rule.Roles), verb(rule))
	}

	for _, scope := range rule.Scopes {
		if err := checkScope(admin, form, scope); err != nil {
			return err
		}
	}

	return nil
}

func checkScope(admin *entity.Admin, form *entity.Form, scope ScopeRule) error {
	switch scope {
	case ScopeCreator:
		if !form.IsCreatedBy(admin.ID) {
			return Forbidden("Only the creator of this form can submit it")
		}
	case ScopeRegionSBU:
		if admin.Role == entity.RoleFull {
			return nil
		}
		if !MatchesScope(admin.Regions, form.RegionCode, form.SBUCode) {
			if form.SBUCode != "" && admin.HasRegion(form.RegionCode) {
				return Forbidden("This form is not in your assigned business unit (%s/%s)", form.RegionCode, form.SBUCode)
			}
			return Forbidden("This form is not in your assigned region (%s)", form.RegionCode)
		}
	case ScopeRegion:
		if admin.Role == entity.RoleFull {
			return nil
		}
		if !admin.HasRegion(form.RegionCode) {
			return Forbidden("This form is not in your assigned region (%s)", form.RegionCode)
		}
	}
	return nil
}

// MatchesScope applies the coordinator rule: an assignment with a business unit
// matches only that unit, an assignment without one matches the whole region.
func MatchesScope(scopes []entity.RegionScope, regionCode, sbuCode string) bool {
	for _, s := range scopes {
		if !strings.EqualFold(s.RegionCode, regionCode) {
			continue
		}
		if s.SBUCode == "" || strings.EqualFold(s.SBUCode, sbuCode) {
			return true
		}
	}
	return false
}

// RegionScope returns the admin's scope assignments. restricted is false for
// roles that act globally within their stage.
func RegionScope(admin *entity.Admin) (scopes []entity.RegionScope, restricted bool) {
	switch admin.Role {
	case entity.RoleCoordinator, entity.RoleSeniorManager:
		return append([]entity.RegionScope(nil), admin.Regions...), true
	default:
		return nil, false
	}
}

// InScope reports whether admin's scope covers filter. A nil filter matches everyone.
func InScope(admin *entity.Admin, filter *entity.RegionFilter) bool {
	if filter == nil {
		return true
	}
	if filter.MatchSBU {
		return MatchesScope(admin.Regions, filter.RegionCode, filter.SBUCode)
	}
	return admin.HasRegion(filter.RegionCode)
}

func containsRole(roles []entity.Role, role entity.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func describeRoles(roles []entity.Role) string {
	labels := make([]string, 0, len(roles))
	for _, r := range roles {
		if label, ok := roleLabels[r]; ok {
			labels = append(labels, label)
		} else {
			labels = append(labels, strings.ToLower(string(r)))
		}
	}
	return strings.Join(labels, " or ")
}

func verb(rule Rule) string {
	switch {
	case rule.Action == ActionDeny:
		return "deny"
	case rule.From.IsPending() && !rule.Claims:
		return "approve"
	default:
		return "submit"
	}
}

// LedgerActionFor returns the ledger action a rule records
func LedgerActionFor(rule Rule) entity.LedgerAction {
	switch verb(rule) {
	case "deny":
		return entity.LedgerActionDenied
	case "approve":
		return entity.LedgerActionApproved
	default:
		return entity.LedgerActionSubmitted
	}
}
