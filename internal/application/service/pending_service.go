package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/erp-approvals/internal/application/port"
	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
)

// PendingService aggregates the requests relevant to an identity
type PendingService interface {
	// ListPending returns non-terminal requests the identity must act on or may watch
	ListPending(ctx context.Context, actor string) ([]RequestSummary, error)

	// ListCompleted returns the identity's own finished requests
	ListCompleted(ctx context.Context, actor string) ([]RequestSummary, error)

	// CountProcessedToday counts requests the identity approved or rejected today
	CountProcessedToday(ctx context.Context, actor string) (int, error)
}

type pendingServiceImpl struct {
	store    port.DocumentStore
	logger   Logger
	now      func() time.Time
	location *time.Location
}

// PendingOption configures the pending service
type PendingOption func(*pendingServiceImpl)

// WithDayBoundary sets the clock and the zone in which "today" is measured
func WithDayBoundary(now func() time.Time, loc *time.Location) PendingOption {
	return func(s *pendingServiceImpl) {
		if now != nil {
			s.now = now
		}
		if loc != nil {
			s.location = loc
		}
	}
}

// NewPendingService creates a new PendingService
func NewPendingService(store port.DocumentStore, logger Logger, opts ...PendingOption) PendingService {
	s := &pendingServiceImpl{
		store:    store,
		logger:   logger,
		now:      time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPending queries each request collection for documents naming the actor
// in any tier or as owner, then classifies them.
func (s *pendingServiceImpl) ListPending(ctx context.Context, actor string) ([]RequestSummary, error) {
	if actor == "" {
		return nil, fmt.Errorf("%w: identity is required", approval.ErrInvalidInput)
	}

	seen := make(map[string]bool)
	var out []RequestSummary

	for _, coll := range requestCollections {
		queries := []port.Query{
			port.Query{Collection: coll}.Where("approvers.first", port.OpArrayContains, actor),
			port.Query{Collection: coll}.Where("approvers.second", port.OpArrayContains, actor),
			port.Query{Collection: coll}.Where("approvers.third", port.OpArrayContains, actor),
			{Collection: coll, Owner: actor},
		}

		for _, q := range queries {
			reqs, err := queryRequests(ctx, s.store, s.logger, q)
			if err != nil {
				s.logger.Error("Pending query failed", "collection", coll, "actor", actor, "error", err)
				return nil, err
			}

			for _, req := range reqs {
				key := req.Ref().String()
				if seen[key] {
					continue
				}
				seen[key] = true

				vis := approval.Classify(req.Status, req.Approvers, actor, req.Owner)
				if vis == approval.VisibilityNone {
					continue
				}
				out = append(out, summarize(req, vis))
			}
		}
	}

	sortNewestFirst(out)
	return out, nil
}

// ListCompleted returns the actor's own terminal requests, newest first
func (s *pendingServiceImpl) ListCompleted(ctx context.Context, actor string) ([]RequestSummary, error) {
	if actor == "" {
		return nil, fmt.Errorf("%w: identity is required", approval.ErrInvalidInput)
	}

	var out []RequestSummary
	for _, coll := range requestCollections {
		reqs, err := queryRequests(ctx, s.store, s.logger, port.Query{Collection: coll, Owner: actor})
		if err != nil {
			return nil, err
		}
		for _, req := range reqs {
			if req.IsTerminal() {
				out = append(out, summarize(req, approval.VisibilityNone))
			}
		}
	}

	sortNewestFirst(out)
	return out, nil
}

// CountProcessedToday narrows candidates by lastApprovedAt and then counts
// documents whose history holds an entry by the actor within today.
func (s *pendingServiceImpl) CountProcessedToday(ctx context.Context, actor string) (int, error) {
	if actor == "" {
		return 0, fmt.Errorf("%w: identity is required", approval.ErrInvalidInput)
	}

	now := s.now().In(s.location)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	end := start.AddDate(0, 0, 1)

	count := 0
	for _, coll := range requestCollections {
		q := port.Query{Collection: coll}.Where("lastApprovedAt", port.OpGreaterOrEqual, start)
		reqs, err := queryRequests(ctx, s.store, s.logger, q)
		if err != nil {
			return 0, err
		}
		for _, req := range reqs {
			if actedWithin(req, actor, start, end) {
				count++
			}
		}
	}
	return count, nil
}

func actedWithin(req *entity.Request, actor string, start, end time.Time) bool {
	for _, h := range req.History {
		if h.Approver == actor && !h.ApprovedAt.Before(start) && h.ApprovedAt.Before(end) {
			return true
		}
	}
	return false
}
