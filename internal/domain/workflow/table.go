package workflow

import (
	"sort"

	"github.com/garyjia/partner-review/internal/domain/entity"
)

// Table is the transition table of one form kind. It is immutable after Build.
type Table struct {
	kind       entity.FormKind
	scoreField string
	rules      map[entity.Status]map[Action]Rule
	stages     map[entity.Status]Stage
}

// Kind returns the form kind the table governs
func (t *Table) Kind() entity.FormKind {
	return t.kind
}

// ScoreField names the score recorded at final approval
func (t *Table) ScoreField() string {
	return t.scoreField
}

// Lookup returns the rule for action from status
func (t *Table) Lookup(from entity.Status, action Action) (Rule, bool) {
	rows, ok := t.rules[from]
	if !ok {
		return Rule{}, false
	}
	rule, ok := rows[action]
	return rule, ok
}

// PermittedActions lists the actions with a row from status
func (t *Table) PermittedActions(from entity.Status) []Action {
	rows := t.rules[from]
	actions := make([]Action, 0, len(rows))
	for action := range rows {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// Rules returns every row ordered by source status then action
func (t *Table) Rules() []Rule {
	var out []Rule
	for _, status := range entity.AllStatuses() {
		for _, action := range t.PermittedActions(status) {
			out = append(out, t.rules[status][action])
		}
	}
	return out
}

// Stage returns the review stage waiting at status
func (t *Table) Stage(status entity.Status) (Stage, bool) {
	stage, ok := t.stages[status]
	return stage, ok
}

// PendingStatuses lists the review stages of the table
func (t *Table) PendingStatuses() []entity.Status {
	var out []entity.Status
	for _, status := range entity.AllStatuses() {
		if _, ok := t.stages[status]; ok {
			out = append(out, status)
		}
	}
	return out
}
