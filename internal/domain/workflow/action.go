package workflow

import "strings"

// Action is what a reviewer asks the workflow to do with a form
type Action string

const (
	ActionSubmit Action = "submit"
	ActionDeny   Action = "deny"
)

// ParseAction accepts the URL segment form of an action
func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionSubmit, ActionDeny:
		return a, true
	default:
		return "", false
	}
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
