package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/garyjia/erp-approvals/internal/application/dispatcher"
	"github.com/garyjia/erp-approvals/internal/application/port"
	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
	"github.com/garyjia/erp-approvals/internal/domain/event"
	"github.com/garyjia/erp-approvals/pkg/utils"
)

// NotificationService reads stored notifications and fans committed request
// events out to mail, chat and the unread badge cache
type NotificationService interface {
	List(ctx context.Context, identity string, unreadOnly bool) ([]entity.Notification, error)
	MarkRead(ctx context.Context, identity, id string) error
	MarkAllRead(ctx context.Context, identity string) (int, error)
	UnreadCount(ctx context.Context, identity string) (int64, error)

	// RegisterHandlers subscribes the fan-out handlers on the dispatcher
	RegisterHandlers(d dispatcher.Dispatcher)
}

type notificationServiceImpl struct {
	store     port.DocumentStore
	mailer    port.Mailer
	messenger port.ChatMessenger
	cache     port.BadgeCache
	logger    Logger
}

// NewNotificationService creates a new NotificationService. Mailer, messenger
// and cache are optional.
func NewNotificationService(
	store port.DocumentStore,
	mailer port.Mailer,
	messenger port.ChatMessenger,
	cache port.BadgeCache,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		store:     store,
		mailer:    mailer,
		messenger: messenger,
		cache:     cache,
		logger:    logger,
	}
}

// storedEventTypes are the events that write notification documents
var storedEventTypes = []event.Type{
	event.TypeRequestCreated,
	event.TypeRequestApproved,
	event.TypeRequestFinalized,
	event.TypeRequestRejected,
	event.TypeRequestCancelled,
}

// RegisterHandlers subscribes mail, chat and badge handlers
func (s *notificationServiceImpl) RegisterHandlers(d dispatcher.Dispatcher) {
	pushed := append(append([]event.Type(nil), storedEventTypes...), event.TypeRequestReminder)

	if s.mailer != nil && s.mailer.IsConfigured() {
		d.SubscribeAll(pushed, "notification.mail", s.handleMail)
	}
	if s.messenger != nil {
		d.SubscribeAll(pushed, "notification.chat", s.handleChat)
	}
	if s.cache != nil {
		d.SubscribeAll(storedEventTypes, "notification.badge", s.handleBadge)
	}
}

// List returns the identity's notifications, newest first
func (s *notificationServiceImpl) List(ctx context.Context, identity string, unreadOnly bool) ([]entity.Notification, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity is required", approval.ErrInvalidInput)
	}

	q := port.Query{
		Collection: entity.CollectionNotifications,
		Owner:      identity,
		Sub:        entity.SubcollectionItems,
		OrderBy:    "createdAt",
		Descending: true,
	}
	if unreadOnly {
		q = q.Where("isRead", port.OpEqual, false)
	}

	snaps, err := s.store.Query(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list notifications", "identity", identity, "error", err)
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]entity.Notification, 0, len(snaps))
	for _, snap := range snaps {
		var n entity.Notification
		if err := snap.DataTo(&n); err != nil {
			s.logger.Error("Skipping unreadable notification", "path", snap.Path.String(), "error", err)
			continue
		}
		n.ID = snap.Path.ID
		out = append(out, n)
	}

	// RFC3339 strings with and without fractional seconds do not sort lexically
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkRead flips one notification to read
func (s *notificationServiceImpl) MarkRead(ctx context.Context, identity, id string) error {
	if identity == "" || id == "" {
		return fmt.Errorf("%w: identity and id are required", approval.ErrInvalidInput)
	}

	path := port.NotificationPath(identity, id)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx port.Txn) error {
		if _, err := tx.Get(path); err != nil {
			if errors.Is(err, port.ErrDocumentNotFound) {
				return fmt.Errorf("%w: notification %s", approval.ErrNotFound, id)
			}
			return err
		}
		return tx.Update(path, map[string]interface{}{"isRead": true})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, identity)
	return nil
}

// MarkAllRead flips every unread notification of the identity and returns how many changed
func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, identity string) (int, error) {
	unread, err := s.List(ctx, identity, true)
	if err != nil {
		return 0, err
	}
	if len(unread) == 0 {
		return 0, nil
	}

	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx port.Txn) error {
		for _, n := range unread {
			if err := tx.Update(port.NotificationPath(identity, n.ID), map[string]interface{}{"isRead": true}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to mark notifications read", "identity", identity, "error", err)
		return 0, err
	}

	s.invalidate(ctx, identity)
	s.logger.Info("Notifications marked read", "identity", identity, "count", len(unread))
	return len(unread), nil
}

// UnreadCount returns the cached unread count, computing and caching it on a miss
func (s *notificationServiceImpl) UnreadCount(ctx context.Context, identity string) (int64, error) {
	if identity == "" {
		return 0, fmt.Errorf("%w: identity is required", approval.ErrInvalidInput)
	}

	if s.cache != nil {
		count, ok, err := s.cache.GetUnread(ctx, identity)
		if err != nil {
			s.logger.Error("Badge cache read failed", "identity", identity, "error", err)
		} else if ok {
			return count, nil
		}
	}

	unread, err := s.List(ctx, identity, true)
	if err != nil {
		return 0, err
	}
	count := int64(len(unread))

	if s.cache != nil {
		if err := s.cache.SetUnread(ctx, identity, count); err != nil {
			s.logger.Error("Badge cache write failed", "identity", identity, "error", err)
		}
	}
	return count, nil
}

func (s *notificationServiceImpl) invalidate(ctx context.Context, identities ...string) {
	if s.cache == nil || len(identities) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, identities...); err != nil {
		s.logger.Error("Badge cache invalidation failed", "identities", identities, "error", err)
	}
}

func (s *notificationServiceImpl) handleMail(ctx context.Context, evt *event.Event) error {
	var recipients []string
	for _, target := range evt.Targets {
		if utils.IsEmail(target) {
			recipients = append(recipients, target)
		}
	}
	if len(recipients) == 0 {
		return nil
	}

	subject := mailSubject(evt)
	body := fmt.Sprintf("%s\n\n%s\n", evt.Message, evt.Link)
	if err := s.mailer.Send(ctx, recipients, subject, body); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	s.logger.Info("Notification mail sent",
		"event_type", evt.Type,
		"request", evt.Request.String(),
		"recipients", len(recipients),
	)
	return nil
}

func (s *notificationServiceImpl) handleChat(ctx context.Context, evt *event.Event) error {
	text := evt.Message
	if evt.Link != "" {
		text += "\n" + evt.Link
	}

	var errs []error
	for _, target := range evt.Targets {
		if err := s.messenger.SendText(ctx, target, text); err != nil {
			errs = append(errs, fmt.Errorf("chat to %s: %w", target, err))
		}
	}
	return errors.Join(errs...)
}

func (s *notificationServiceImpl) handleBadge(ctx context.Context, evt *event.Event) error {
	if len(evt.Targets) == 0 {
		return nil
	}
	return s.cache.Invalidate(ctx, evt.Targets...)
}

func mailSubject(evt *event.Event) string {
	title := evt.GetPayloadString(event.PayloadTitle)
	switch evt.Type {
	case event.TypeRequestFinalized:
		return "[Approval] Approved: " + title
	case event.TypeRequestRejected:
		return "[Approval] Rejected: " + title
	case event.TypeRequestCancelled:
		return "[Approval] Cancelled: " + title
	case event.TypeRequestReminder:
		return "[Approval] Reminder: " + title
	default:
		return "[Approval] Action required: " + title
	}
}
