package entity

import (
	"fmt"

	"github.com/garyjia/erp-approvals/internal/domain/approval"
)

// Kind identifies the type of document under approval
type Kind string

const (
	KindVacation     Kind = "vacation"
	KindPurchase     Kind = "purchase"
	KindSales        Kind = "sales"
	KindVehicle      Kind = "vehicle"
	KindExpense      Kind = "expense"
	KindDailyReport  Kind = "daily_report"
	KindWeeklyReport Kind = "weekly_report"
)

// Document collections
const (
	CollectionVacations     = "vacations"
	CollectionApprovals     = "approvals"
	CollectionReports       = "reports"
	CollectionNotifications = "notifications"
	CollectionUsers         = "users"

	SubcollectionRequests      = "requests"
	SubcollectionItems         = "items"
	SubcollectionBalances      = "balances"
	SubcollectionDailyReports  = "daily"
	SubcollectionWeeklyReports = "weekly"
)

// AllKinds lists every kind, in display order
var AllKinds = []Kind{
	KindVacation,
	KindPurchase,
	KindSales,
	KindVehicle,
	KindExpense,
	KindDailyReport,
	KindWeeklyReport,
}

// ParseKind validates a kind received from a caller
func ParseKind(raw string) (Kind, error) {
	k := Kind(raw)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: unknown request kind %q", approval.ErrInvalidInput, raw)
	}
	return k, nil
}

// IsValid returns true for defined kinds
func (k Kind) IsValid() bool {
	switch k {
	case KindVacation, KindPurchase, KindSales, KindVehicle, KindExpense, KindDailyReport, KindWeeklyReport:
		return true
	default:
		return false
	}
}

// IsReport returns true for daily and weekly reports
func (k Kind) IsReport() bool {
	return k == KindDailyReport || k == KindWeeklyReport
}

// Collection returns the top-level collection storing this kind
func (k Kind) Collection() string {
	switch {
	case k == KindVacation:
		return CollectionVacations
	case k.IsReport():
		return CollectionReports
	default:
		return CollectionApprovals
	}
}

// Subcollection returns the per-owner subcollection storing this kind
func (k Kind) Subcollection() string {
	switch k {
	case KindVacation:
		return SubcollectionRequests
	case KindDailyReport:
		return SubcollectionDailyReports
	case KindWeeklyReport:
		return SubcollectionWeeklyReports
	default:
		return string(k)
	}
}

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// KindAt returns the kind stored at a collection and subcollection
func KindAt(collection, sub string) (Kind, bool) {
	for _, k := range AllKinds {
		if k.Collection() == collection && k.Subcollection() == sub {
			return k, true
		}
	}
	return "", false
}
