package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/erp-approvals/internal/application/dispatcher"
	"github.com/garyjia/erp-approvals/internal/application/port"
	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
	"github.com/garyjia/erp-approvals/internal/domain/event"
)

// ReminderService nudges the authoritative tier of requests that have waited too long
type ReminderService interface {
	// SendReminders dispatches one reminder per stale request and returns how many were sent
	SendReminders(ctx context.Context) (int, error)
}

type reminderServiceImpl struct {
	store      port.DocumentStore
	dispatcher dispatcher.Dispatcher
	logger     Logger
	staleAfter time.Duration
	now        func() time.Time
}

// NewReminderService creates a ReminderService. now may be nil.
func NewReminderService(store port.DocumentStore, d dispatcher.Dispatcher, logger Logger, staleAfter time.Duration, now func() time.Time) ReminderService {
	if now == nil {
		now = time.Now
	}
	return &reminderServiceImpl{
		store:      store,
		dispatcher: d,
		logger:     logger,
		staleAfter: staleAfter,
		now:        now,
	}
}

// SendReminders narrows candidates by creation time and then checks the last
// decision, since an approval in between restarts the wait.
func (s *reminderServiceImpl) SendReminders(ctx context.Context) (int, error) {
	now := s.now().UTC()
	cutoff := now.Add(-s.staleAfter)

	sent := 0
	for _, coll := range requestCollections {
		q := port.Query{Collection: coll}.Where("createdAt", port.OpLessThan, cutoff)
		reqs, err := queryRequests(ctx, s.store, s.logger, q)
		if err != nil {
			return sent, err
		}

		for _, req := range reqs {
			if req.IsTerminal() {
				continue
			}
			since := waitingSince(req)
			if since.After(cutoff) {
				continue
			}
			targets := approval.ActiveMembers(req.Status, req.Approvers)
			if len(targets) == 0 {
				continue
			}

			days := int(now.Sub(since).Hours() / 24)
			evt := event.NewEvent(event.TypeRequestReminder, req.Ref(), "", targets,
				fmt.Sprintf("%s has waited %d day(s) for your decision", req.Title, days)).
				WithPayload(event.PayloadTitle, req.Title).
				WithPayload(event.PayloadStatus, req.Status.String()).
				WithPayload(event.PayloadWaitingDays, float64(days))

			if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
				s.logger.Error("Reminder delivery failed", "request", req.Ref().String(), "error", err)
				continue
			}
			sent++
		}
	}

	if sent > 0 {
		s.logger.Info("Reminders sent", "count", sent)
	}
	return sent, nil
}

func waitingSince(req *entity.Request) time.Time {
	if req.LastApprovedAt != nil && req.LastApprovedAt.After(req.CreatedAt) {
		return *req.LastApprovedAt
	}
	return req.CreatedAt
}
