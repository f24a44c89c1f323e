package workflow

import (
	"context"

	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
)

// Coordinator applies approval decisions and request lifecycle changes
// atomically: one store transaction reads the request, decides, and writes the
// new state together with every notification it produces.
type Coordinator interface {
	// Submit applies an approve or reject action by the actor
	Submit(ctx context.Context, cmd SubmitCommand) (*SubmitResult, error)

	// Create stores a new request in its initial pending stage
	Create(ctx context.Context, cmd CreateCommand) (*entity.Request, error)

	// Cancel deletes a request on behalf of its owner
	Cancel(ctx context.Context, ref entity.RequestRef, actor string) error

	// EditReport changes the title and content of a report nobody has acted on yet
	EditReport(ctx context.Context, cmd EditCommand) (*entity.Request, error)

	// AddAttachment records a stored blob on a pending request
	AddAttachment(ctx context.Context, ref entity.RequestRef, actor string, att entity.Attachment) error

	// Get reads a request with its status normalised
	Get(ctx context.Context, ref entity.RequestRef) (*entity.Request, error)

	// Actions lists the decisions the actor may submit on the request now
	Actions(req *entity.Request, actor string) []approval.Action
}

// SubmitCommand is one approver decision
type SubmitCommand struct {
	Ref     entity.RequestRef
	Actor   string
	Action  approval.Action
	Comment string
}

// SubmitResult reports the state written by Submit
type SubmitResult struct {
	Status   approval.Status
	Outcome  approval.Outcome
	Notified []string
}

// CreateCommand describes a new request. Nil approvers fall back to the
// routing defaults for the kind.
type CreateCommand struct {
	Kind      entity.Kind
	Owner     string
	Title     string
	Content   string
	Approvers *approval.Approvers
	Vacation  *entity.VacationDetail
}

// EditCommand replaces the text of a report
type EditCommand struct {
	Ref     entity.RequestRef
	Actor   string
	Title   string
	Content string
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
