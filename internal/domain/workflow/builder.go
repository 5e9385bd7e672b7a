package workflow

import (
	"fmt"

	"github.com/garyjia/partner-review/internal/domain/entity"
)

// ScopeRule restricts which forms an authorized role may act on
type ScopeRule int

const (
	// ScopeGlobal places no restriction beyond the role
	ScopeGlobal ScopeRule = iota
	// ScopeRegionSBU requires the form's region, and business unit where the
	// assignment names one, to be in the admin's scope
	ScopeRegionSBU
	// ScopeRegion requires the form's region to be assigned, ignoring business units
	ScopeRegion
	// ScopeCreator requires the actor to be the form's creator
	ScopeCreator
)

// Requirement is what an actor must satisfy to fire a rule
type Requirement struct {
	// Roles allowed to act. Empty means any role.
	Roles []entity.Role
	// Scopes must all hold for the actor
	Scopes []ScopeRule
	// RequireComments rejects empty comments
	RequireComments bool
	// RequireScore demands a score in [MinScore, MaxScore]
	RequireScore bool
}

// Rule is one row of a transition table
type Rule struct {
	Kind   entity.FormKind
	From   entity.Status
	Action Action
	To     entity.Status
	Requirement
	// ScoreField names the score the final stage records, for messages
	ScoreField string
	// Claims records the actor as creator when the form has none
	Claims bool
}

// TableBuilder builds a transition table for one form kind
type TableBuilder interface {
	// Configure returns the row configuration for a source status
	Configure(from entity.Status) StatusConfiguration

	// Build freezes the configured rows into a table
	Build() *Table
}

// StatusConfiguration configures the rows leaving one status
type StatusConfiguration interface {
	// Permit allows action to move the form to the target status
	Permit(action Action, to entity.Status, req Requirement) StatusConfiguration

	// PermitClaim is Permit and also records the actor as creator of an unclaimed form
	PermitClaim(action Action, to entity.Status, req Requirement) StatusConfiguration
}

type statusConfig struct {
	builder *tableBuilder
	from    entity.Status
}

type tableBuilder struct {
	kind       entity.FormKind
	scoreField string
	rules      map[entity.Status]map[Action]Rule
	stages     map[entity.Status]Stage
}

// NewTableBuilder creates a builder for kind. scoreField names the score the
// final approval records.
func NewTableBuilder(kind entity.FormKind, scoreField string) TableBuilder {
	return newTableBuilder(kind, scoreField)
}

func newTableBuilder(kind entity.FormKind, scoreField string) *tableBuilder {
	return &tableBuilder{
		kind:       kind,
		scoreField: scoreField,
		rules:      make(map[entity.Status]map[Action]Rule),
		stages:     make(map[entity.Status]Stage),
	}
}

// Configure returns the row configuration for a source status
func (b *tableBuilder) Configure(from entity.Status) StatusConfiguration {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", from))
	}
	if _, exists := b.rules[from]; !exists {
		b.rules[from] = make(map[Action]Rule)
	}
	return &statusConfig{builder: b, from: from}
}

func (b *tableBuilder) addStage(stage Stage) {
	b.stages[stage.Status] = stage
}

// Build freezes the configured rows into a table
func (b *tableBuilder) Build() *Table {
	rules := make(map[entity.Status]map[Action]Rule, len(b.rules))
	for from, byAction := range b.rules {
		rows := make(map[Action]Rule, len(byAction))
		for action, rule := range byAction {
			rule.Roles = append([]entity.Role(nil), rule.Roles...)
			rule.Scopes = append([]ScopeRule(nil), rule.Scopes...)
			rows[action] = rule
		}
		rules[from] = rows
	}

	stages := make(map[entity.Status]Stage, len(b.stages))
	for status, stage := range b.stages {
		stages[status] = stage
	}

	return &Table{
		kind:       b.kind,
		scoreField: b.scoreField,
		rules:      rules,
		stages:     stages,
	}
}

// Permit allows action to move the form to the target status
func (c *statusConfig) Permit(action Action, to entity.Status, req Requirement) StatusConfiguration {
	return c.permit(action, to, req, false)
}

// PermitClaim is Permit and also records the actor as creator of an unclaimed form
func (c *statusConfig) PermitClaim(action Action, to entity.Status, req Requirement) StatusConfiguration {
	return c.permit(action, to, req, true)
}

func (c *statusConfig) permit(action Action, to entity.Status, req Requirement, claims bool) StatusConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", to))
	}
	if _, exists := c.builder.rules[c.from][action]; exists {
		panic(fmt.Sprintf("duplicate rule: %s --%s-->", c.from, action))
	}

	rule := Rule{
		Kind:        c.builder.kind,
		From:        c.from,
		Action:      action,
		To:          to,
		Requirement: req,
		Claims:      claims,
	}
	if req.RequireScore {
		rule.ScoreField = c.builder.scoreField
	}

	c.builder.rules[c.from][action] = rule
	return c
}
