package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/erp-approvals/internal/application/port"
	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
	"github.com/garyjia/erp-approvals/internal/domain/event"
)

// DecodeRequest converts a stored document into a request. The path is
// authoritative for kind, owner and id; legacy statuses are normalised
// against the document's approvers.
func DecodeRequest(snap *port.Snapshot) (*entity.Request, error) {
	var req entity.Request
	if err := snap.DataTo(&req); err != nil {
		return nil, err
	}

	kind, ok := entity.KindAt(snap.Path.Collection, snap.Path.Sub)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a request path", approval.ErrInvalidInput, snap.Path)
	}
	req.Kind = kind
	req.Owner = snap.Path.Owner
	req.ID = snap.Path.ID
	req.Status = req.Status.Resolve(req.Approvers)
	if req.CreatedAt.IsZero() {
		req.CreatedAt = snap.CreateTime
	}
	return &req, nil
}

func readRequest(tx port.Txn, ref entity.RequestRef) (*entity.Request, error) {
	if !ref.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown kind %q", approval.ErrInvalidInput, ref.Kind)
	}
	snap, err := tx.Get(port.RequestPath(ref))
	if err != nil {
		return nil, notFound(err, ref)
	}
	return DecodeRequest(snap)
}

// readBalance returns nil when the owner has no balance for the year yet
func readBalance(tx port.Txn, req *entity.Request) (*entity.Balance, error) {
	snap, err := tx.Get(port.BalancePath(req.Owner, req.Year()))
	if errors.Is(err, port.ErrDocumentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var b entity.Balance
	if err := snap.DataTo(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// writeNotifications stores one notification per event target
func (c *coordinator) writeNotifications(tx port.Txn, evt *event.Event, now time.Time) error {
	for _, target := range evt.Targets {
		n := entity.Notification{
			ID:              c.newID(),
			Target:          target,
			From:            evt.Actor,
			Type:            evt.NotificationType(),
			Message:         evt.Message,
			Link:            evt.Link,
			CreatedAt:       now,
			SourceRequestID: evt.Request.ID,
		}
		if err := tx.Set(port.NotificationPath(target, n.ID), n); err != nil {
			return fmt.Errorf("failed to write notification for %s: %w", target, err)
		}
	}
	return nil
}

func eventTypeFor(o approval.Outcome) event.Type {
	switch o {
	case approval.OutcomeFinalized:
		return event.TypeRequestFinalized
	case approval.OutcomeRejected:
		return event.TypeRequestRejected
	default:
		return event.TypeRequestApproved
	}
}

// cancelTargets returns approvers who acted or currently hold authority
func cancelTargets(req *entity.Request, actor string) []string {
	seen := map[string]bool{actor: true}
	var out []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, h := range req.History {
		add(h.Approver)
	}
	for _, id := range approval.ActiveMembers(req.Status, req.Approvers) {
		add(id)
	}
	return out
}
