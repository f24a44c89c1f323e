package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/erp-approvals/internal/application/dispatcher"
	"github.com/garyjia/erp-approvals/internal/application/port"
	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
	"github.com/garyjia/erp-approvals/internal/domain/event"
)

const vacationDateLayout = "2006-01-02"

// coordinator is the concrete implementation of Coordinator
type coordinator struct {
	store      port.DocumentStore
	machine    *approval.Machine
	dispatcher dispatcher.Dispatcher
	routing    port.RoutingTable
	logger     Logger
	now        func() time.Time
	newID      func() string

	defaultVacationDays float64
}

// Option configures the coordinator
type Option func(*coordinator)

// WithDispatcher sets the event dispatcher notified after each commit
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(c *coordinator) {
		c.dispatcher = d
	}
}

// WithRoutingTable sets the default approvers used by Create
func WithRoutingTable(r port.RoutingTable) Option {
	return func(c *coordinator) {
		c.routing = r
	}
}

// WithLogger sets the logger
func WithLogger(l Logger) Option {
	return func(c *coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *coordinator) {
		c.now = now
	}
}

// WithIDGenerator overrides request and notification id generation
func WithIDGenerator(newID func() string) Option {
	return func(c *coordinator) {
		c.newID = newID
	}
}

// WithDefaultVacationDays sets the yearly allowance of a balance created on first use
func WithDefaultVacationDays(days float64) Option {
	return func(c *coordinator) {
		c.defaultVacationDays = days
	}
}

// NewCoordinator creates a coordinator over the document store
func NewCoordinator(store port.DocumentStore, opts ...Option) Coordinator {
	c := &coordinator{
		store:               store,
		machine:             approval.NewMachine(),
		logger:              nopLogger{},
		now:                 func() time.Time { return time.Now().UTC() },
		newID:               uuid.NewString,
		defaultVacationDays: 15,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Submit applies an approve or reject action
func (c *coordinator) Submit(ctx context.Context, cmd SubmitCommand) (*SubmitResult, error) {
	if cmd.Actor == "" {
		return nil, fmt.Errorf("%w: actor is required", approval.ErrInvalidInput)
	}
	if _, err := approval.ParseAction(string(cmd.Action)); err != nil {
		return nil, err
	}

	var (
		result *SubmitResult
		evt    *event.Event
	)

	err := c.store.RunTransaction(ctx, func(ctx context.Context, tx port.Txn) error {
		req, err := readRequest(tx, cmd.Ref)
		if err != nil {
			return err
		}

		var balance *entity.Balance
		if req.ConsumesBalance() {
			if balance, err = readBalance(tx, req); err != nil {
				return err
			}
		}

		now := c.now()
		d, err := c.machine.Decide(approval.Input{
			Status:    req.Status,
			Approvers: req.Approvers,
			Actor:     cmd.Actor,
			Action:    cmd.Action,
			Comment:   cmd.Comment,
			Title:     req.Title,
			Submitter: req.Owner,
			Link:      cmd.Ref.Link(),
			Now:       now,
		})
		if err != nil {
			return err
		}

		if err := tx.Update(port.RequestPath(cmd.Ref), map[string]interface{}{
			"status":          d.To.String(),
			"approvalHistory": port.ArrayUnion(d.Entry),
			"lastApprovedAt":  now,
		}); err != nil {
			return err
		}

		evt = event.NewEvent(eventTypeFor(d.Outcome), cmd.Ref, cmd.Actor, d.Notify, d.Message).
			WithPayload(event.PayloadTitle, req.Title).
			WithPayload(event.PayloadStatus, d.To.String())

		if err := c.writeNotifications(tx, evt, now); err != nil {
			return err
		}

		if d.Outcome == approval.OutcomeFinalized && req.ConsumesBalance() {
			if err := c.chargeBalance(tx, req, balance); err != nil {
				return err
			}
			evt = evt.WithPayload(event.PayloadDays, req.Vacation.Days)
		}

		result = &SubmitResult{Status: d.To, Outcome: d.Outcome, Notified: d.Notify}
		return nil
	})
	if err != nil {
		c.logger.Error("Approval submit failed",
			"request", cmd.Ref.String(),
			"actor", cmd.Actor,
			"action", cmd.Action,
			"error", err,
		)
		return nil, err
	}

	c.logger.Info("Approval submitted",
		"request", cmd.Ref.String(),
		"actor", cmd.Actor,
		"status", result.Status.String(),
	)
	c.dispatch(ctx, evt)
	return result, nil
}

// Create stores a new request
func (c *coordinator) Create(ctx context.Context, cmd CreateCommand) (*entity.Request, error) {
	if err := validateCreate(cmd); err != nil {
		return nil, err
	}

	approvers := c.resolveApprovers(cmd)
	status, err := approval.InitialStatus(approvers)
	if err != nil {
		return nil, fmt.Errorf("%w: %s request", err, cmd.Kind)
	}

	now := c.now()
	req := &entity.Request{
		ID:        c.newID(),
		Kind:      cmd.Kind,
		Owner:     cmd.Owner,
		Title:     strings.TrimSpace(cmd.Title),
		Content:   cmd.Content,
		Approvers: approvers,
		Status:    status,
		History:   []approval.HistoryEntry{},
		CreatedAt: now,
		Vacation:  cmd.Vacation,
	}
	ref := req.Ref()

	targets := approval.ActiveMembers(status, approvers)
	evt := event.NewEvent(event.TypeRequestCreated, ref, cmd.Owner, targets,
		fmt.Sprintf("'%s' from %s awaits your approval", req.Title, cmd.Owner)).
		WithPayload(event.PayloadTitle, req.Title).
		WithPayload(event.PayloadStatus, status.String())

	err = c.store.RunTransaction(ctx, func(ctx context.Context, tx port.Txn) error {
		if err := tx.Set(port.RequestPath(ref), req); err != nil {
			return err
		}
		return c.writeNotifications(tx, evt, now)
	})
	if err != nil {
		c.logger.Error("Request create failed", "kind", cmd.Kind, "owner", cmd.Owner, "error", err)
		return nil, err
	}

	c.logger.Info("Request created", "request", ref.String(), "status", status.String())
	c.dispatch(ctx, evt)
	return req, nil
}

// Cancel deletes a request. A finally approved vacation is refunded in the
// same transaction; other final or rejected requests cannot be cancelled.
func (c *coordinator) Cancel(ctx context.Context, ref entity.RequestRef, actor string) error {
	if actor == "" || actor != ref.Owner {
		return fmt.Errorf("%w: only the owner can cancel %s", approval.ErrNotAuthorized, ref)
	}

	var evt *event.Event
	err := c.store.RunTransaction(ctx, func(ctx context.Context, tx port.Txn) error {
		req, err := readRequest(tx, ref)
		if err != nil {
			return err
		}

		refund := false
		switch req.Status.Stage {
		case approval.StageRejected:
			return fmt.Errorf("%w: rejected request cannot be cancelled", approval.ErrInvalidAction)
		case approval.StageFinalApproved:
			if req.Kind != entity.KindVacation {
				return fmt.Errorf("%w: approved %s request cannot be cancelled", approval.ErrInvalidAction, req.Kind)
			}
			refund = req.ConsumesBalance()
		}

		var balance *entity.Balance
		if refund {
			if balance, err = readBalance(tx, req); err != nil {
				return err
			}
		}

		if err := tx.Delete(port.RequestPath(ref)); err != nil {
			return err
		}

		evt = event.NewEvent(event.TypeRequestCancelled, ref, actor, cancelTargets(req, actor),
			fmt.Sprintf("'%s' was cancelled by %s", req.Title, actor)).
			WithPayload(event.PayloadTitle, req.Title).
			WithPayload(event.PayloadStatus, req.Status.String())

		if refund {
			if err := c.refundBalance(tx, req, balance); err != nil {
				return err
			}
			evt = evt.WithPayload(event.PayloadDays, req.Vacation.Days)
		}

		return c.writeNotifications(tx, evt, c.now())
	})
	if err != nil {
		c.logger.Error("Request cancel failed", "request", ref.String(), "error", err)
		return err
	}

	c.logger.Info("Request cancelled", "request", ref.String())
	c.dispatch(ctx, evt)
	return nil
}

// EditReport updates a report before anyone has acted on it
func (c *coordinator) EditReport(ctx context.Context, cmd EditCommand) (*entity.Request, error) {
	if cmd.Actor == "" || cmd.Actor != cmd.Ref.Owner {
		return nil, fmt.Errorf("%w: only the owner can edit %s", approval.ErrNotAuthorized, cmd.Ref)
	}
	if !cmd.Ref.Kind.IsReport() {
		return nil, fmt.Errorf("%w: %s requests cannot be edited", approval.ErrInvalidAction, cmd.Ref.Kind)
	}
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", approval.ErrInvalidInput)
	}

	var edited *entity.Request
	err := c.store.RunTransaction(ctx, func(ctx context.Context, tx port.Txn) error {
		req, err := readRequest(tx, cmd.Ref)
		if err != nil {
			return err
		}
		if req.IsTerminal() || len(req.History) > 0 {
			return fmt.Errorf("%w: report is already under review", approval.ErrInvalidAction)
		}

		if err := tx.Update(port.RequestPath(cmd.Ref), map[string]interface{}{
			"title":     title,
			"content":   cmd.Content,
			"updatedAt": port.ServerTimestamp,
		}); err != nil {
			return err
		}

		req.Title = title
		req.Content = cmd.Content
		edited = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Report edited", "request", cmd.Ref.String())
	return edited, nil
}

// AddAttachment appends an attachment reference to a pending request
func (c *coordinator) AddAttachment(ctx context.Context, ref entity.RequestRef, actor string, att entity.Attachment) error {
	if actor == "" || actor != ref.Owner {
		return fmt.Errorf("%w: only the owner can attach files to %s", approval.ErrNotAuthorized, ref)
	}

	return c.store.RunTransaction(ctx, func(ctx context.Context, tx port.Txn) error {
		req, err := readRequest(tx, ref)
		if err != nil {
			return err
		}
		if req.IsTerminal() {
			return fmt.Errorf("%w: request is already %s", approval.ErrInvalidAction, req.Status.Stage)
		}
		return tx.Update(port.RequestPath(ref), map[string]interface{}{
			"attachments": port.ArrayUnion(att),
		})
	})
}

// Get reads a request outside any transaction
func (c *coordinator) Get(ctx context.Context, ref entity.RequestRef) (*entity.Request, error) {
	snap, err := c.store.Get(ctx, port.RequestPath(ref))
	if err != nil {
		return nil, notFound(err, ref)
	}
	return DecodeRequest(snap)
}

// Actions lists the decisions the actor may submit on the request now
func (c *coordinator) Actions(req *entity.Request, actor string) []approval.Action {
	return c.machine.Available(req.Status, req.Approvers, actor)
}

func (c *coordinator) resolveApprovers(cmd CreateCommand) approval.Approvers {
	var a approval.Approvers
	if cmd.Approvers != nil {
		a = *cmd.Approvers
	}
	if a.HasApprovers() || c.routing == nil {
		return a
	}

	defaults, ok := c.routing.Approvers(cmd.Kind)
	if !ok {
		return a
	}
	if len(a.Shared) > 0 {
		defaults.Shared = a.Shared
	}
	return defaults
}

func (c *coordinator) chargeBalance(tx port.Txn, req *entity.Request, balance *entity.Balance) error {
	days := req.Vacation.Days
	path := port.BalancePath(req.Owner, req.Year())

	if balance == nil {
		return tx.Set(path, entity.Balance{
			Owner:     req.Owner,
			Year:      req.Year(),
			Total:     c.defaultVacationDays,
			Used:      days,
			Remaining: c.defaultVacationDays - days,
		})
	}
	return tx.Update(path, map[string]interface{}{
		"used":      port.Increment(days),
		"remaining": port.Increment(-days),
	})
}

func (c *coordinator) refundBalance(tx port.Txn, req *entity.Request, balance *entity.Balance) error {
	if balance == nil {
		c.logger.Error("Vacation refund skipped, balance missing",
			"request", req.Ref().String(),
			"year", req.Year(),
		)
		return nil
	}
	days := req.Vacation.Days
	return tx.Update(port.BalancePath(req.Owner, req.Year()), map[string]interface{}{
		"used":      port.Increment(-days),
		"remaining": port.Increment(days),
	})
}

func (c *coordinator) dispatch(ctx context.Context, evt *event.Event) {
	if c.dispatcher == nil || evt == nil {
		return
	}
	if err := c.dispatcher.Dispatch(context.WithoutCancel(ctx), evt); err != nil {
		c.logger.Error("Post-commit handlers failed",
			"event_type", evt.Type,
			"request", evt.Request.String(),
			"error", err,
		)
	}
}

func validateCreate(cmd CreateCommand) error {
	if !cmd.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", approval.ErrInvalidInput, cmd.Kind)
	}
	if cmd.Owner == "" {
		return fmt.Errorf("%w: owner is required", approval.ErrInvalidInput)
	}
	if strings.TrimSpace(cmd.Title) == "" {
		return fmt.Errorf("%w: title is required", approval.ErrInvalidInput)
	}
	if cmd.Kind != entity.KindVacation {
		return nil
	}

	v := cmd.Vacation
	if v == nil || v.Days <= 0 {
		return fmt.Errorf("%w: vacation requires a positive number of days", approval.ErrInvalidInput)
	}
	start, err := time.Parse(vacationDateLayout, v.StartDate)
	if err != nil {
		return fmt.Errorf("%w: start date %q", approval.ErrInvalidInput, v.StartDate)
	}
	end, err := time.Parse(vacationDateLayout, v.EndDate)
	if err != nil {
		return fmt.Errorf("%w: end date %q", approval.ErrInvalidInput, v.EndDate)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: vacation ends before it starts", approval.ErrInvalidInput)
	}
	return nil
}

func notFound(err error, ref entity.RequestRef) error {
	if errors.Is(err, port.ErrDocumentNotFound) {
		return fmt.Errorf("%w: %s", approval.ErrNotFound, ref)
	}
	return err
}
