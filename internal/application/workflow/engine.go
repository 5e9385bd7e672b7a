package workflow

import (
	"context"

	"github.com/garyjia/partner-review/internal/domain/entity"
	domainwf "github.com/garyjia/partner-review/internal/domain/workflow"
)

// WorkflowEngine runs one reviewer action against a form
type WorkflowEngine interface {
	// Execute validates, authorizes and commits one submit or deny. It never
	// partially applies a transition: on error nothing was written.
	Execute(ctx context.Context, cmd Command) (*Result, error)

	// Resolver exposes the rules the engine enforces
	Resolver() *domainwf.Resolver
}

// Command is one reviewer request
type Command struct {
	FormID  int64
	Kind    entity.FormKind
	Actor   *entity.Admin
	Action  domainwf.Action
	Payload domainwf.Payload
}

// Result describes a committed transition and the side effects it produced.
// Intents and Audit are dispatched by the caller after commit.
type Result struct {
	Form       *entity.Form
	FromStatus entity.Status
	Entry      *entity.ApprovalLedgerEntry
	Intents    []domainwf.Intent
	Audit      *entity.AuditEvent
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
