package port

import (
	"context"

	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
)

// Mailer sends plain text e-mail
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
	IsConfigured() bool
}

// ChatMessenger pushes short text messages to an identity
type ChatMessenger interface {
	SendText(ctx context.Context, identity string, text string) error
}

// BadgeCache caches per-identity unread notification counts
type BadgeCache interface {
	// GetUnread returns the cached count and whether it was present
	GetUnread(ctx context.Context, identity string) (int64, bool, error)
	SetUnread(ctx context.Context, identity string, count int64) error
	Invalidate(ctx context.Context, identities ...string) error
}

// RoutingTable supplies default approvers per kind
type RoutingTable interface {
	Approvers(kind entity.Kind) (approval.Approvers, bool)
}
