package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/erp-approvals/internal/application/port"
	"github.com/garyjia/erp-approvals/internal/application/workflow"
	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
)

var day = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func newPendingFixture(t *testing.T) (*testClock, workflow.Coordinator, PendingService, port.DocumentStore) {
	t.Helper()
	store := newTestStore(t)
	clock := &testClock{now: day}
	coord := workflow.NewCoordinator(store, workflow.WithClock(clock.Now))
	svc := NewPendingService(store, &mockLogger{}, WithDayBoundary(clock.Now, time.UTC))
	return clock, coord, svc, store
}

func visibilityOf(items []RequestSummary, id string) approval.Visibility {
	for _, it := range items {
		if it.ID == id {
			return it.Visibility
		}
	}
	return approval.VisibilityNone
}

func TestPendingService_ListPendingFollowsTheChain(t *testing.T) {
	_, coord, svc, _ := newPendingFixture(t)
	ref := createRequest(t, coord, entity.KindPurchase, "S", "laptops", approval.Approvers{
		First:  []string{"A"},
		Second: []string{"B"},
		Third:  []string{"C"},
		Shared: []string{"D"},
	})

	check := func(want map[string]approval.Visibility) {
		t.Helper()
		for identity, vis := range want {
			items, err := svc.ListPending(context.Background(), identity)
			require.NoError(t, err)
			assert.Equal(t, vis, visibilityOf(items, ref.ID), "identity %s", identity)
		}
	}

	check(map[string]approval.Visibility{
		"A": approval.VisibilityActionRequired,
		"B": approval.VisibilityMonitoring,
		"C": approval.VisibilityMonitoring,
		"D": approval.VisibilityNone,
		"S": approval.VisibilityMonitoring,
	})

	decide(t, coord, ref, "A", approval.ActionApprove)
	check(map[string]approval.Visibility{
		"A": approval.VisibilityNone,
		"B": approval.VisibilityActionRequired,
		"C": approval.VisibilityMonitoring,
	})

	decide(t, coord, ref, "B", approval.ActionApprove)
	decide(t, coord, ref, "C", approval.ActionApprove)
	check(map[string]approval.Visibility{
		"A": approval.VisibilityNone,
		"B": approval.VisibilityNone,
		"C": approval.VisibilityNone,
		"S": approval.VisibilityNone,
	})
}

func TestPendingService_ListPendingSummary(t *testing.T) {
	clock, coord, svc, _ := newPendingFixture(t)
	older := createRequest(t, coord, entity.KindVacation, "S", "holiday", approval.Approvers{First: []string{"A"}})
	clock.Set(day.Add(time.Hour))
	newer := createRequest(t, coord, entity.KindDailyReport, "S", "report", approval.Approvers{
		First: []string{"A"},
		Third: []string{"A"},
	})

	items, err := svc.ListPending(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, items, 2, "an identity in two tiers sees the request once")
	assert.Equal(t, newer.ID, items[0].ID)
	assert.Equal(t, older.ID, items[1].ID)

	assert.Equal(t, entity.KindVacation, items[1].Kind)
	assert.Equal(t, "S", items[1].Owner)
	assert.Equal(t, "TIER1_PENDING", items[1].Status)
	assert.Equal(t, "first", items[1].ActiveTier)
	assert.Equal(t, older.Link(), items[1].Link)
}

func TestPendingService_LegacyAndCorruptDocuments(t *testing.T) {
	_, _, svc, store := newPendingFixture(t)
	seed := func(id, status string) {
		path := port.RequestPath(entity.RequestRef{Kind: entity.KindExpense, Owner: "S", ID: id})
		err := store.RunTransaction(context.Background(), func(ctx context.Context, tx port.Txn) error {
			return tx.Set(path, map[string]interface{}{
				"title":     id,
				"status":    status,
				"approvers": map[string]interface{}{"first": []string{"A"}, "second": []string{"B"}},
				"createdAt": day,
			})
		})
		require.NoError(t, err)
	}
	seed("legacy", "2차 결재 대기")
	seed("corrupt", "보류")
	seed("done", "최종 승인")

	items, err := svc.ListPending(context.Background(), "B")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "legacy", items[0].ID)
	assert.Equal(t, approval.VisibilityActionRequired, items[0].Visibility)
	assert.Equal(t, "TIER2_PENDING", items[0].Status)
}

func TestPendingService_ListCompleted(t *testing.T) {
	clock, coord, svc, _ := newPendingFixture(t)
	a := approval.Approvers{First: []string{"A"}}
	approved := createRequest(t, coord, entity.KindSales, "S", "deal", a)
	clock.Set(day.Add(time.Minute))
	rejected := createRequest(t, coord, entity.KindVehicle, "S", "van", a)
	createRequest(t, coord, entity.KindExpense, "S", "open", a)
	createRequest(t, coord, entity.KindExpense, "other", "not mine", a)

	decide(t, coord, approved, "A", approval.ActionApprove)
	decide(t, coord, rejected, "A", approval.ActionReject)

	items, err := svc.ListCompleted(context.Background(), "S")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, rejected.ID, items[0].ID)
	assert.Equal(t, "REJECTED:A", items[0].Status)
	assert.Empty(t, items[0].ActiveTier)
	assert.Equal(t, approved.ID, items[1].ID)
}

func TestPendingService_CountProcessedToday(t *testing.T) {
	clock, coord, svc, _ := newPendingFixture(t)
	a := approval.Approvers{First: []string{"A"}, Second: []string{"B"}}

	clock.Set(day.Add(-24 * time.Hour))
	yesterday := createRequest(t, coord, entity.KindPurchase, "S", "y", a)
	decide(t, coord, yesterday, "A", approval.ActionApprove)

	clock.Set(day)
	first := createRequest(t, coord, entity.KindPurchase, "S", "one", a)
	second := createRequest(t, coord, entity.KindVacation, "S", "two", a)
	createRequest(t, coord, entity.KindWeeklyReport, "S", "three", a)
	decide(t, coord, first, "A", approval.ActionApprove)
	decide(t, coord, second, "A", approval.ActionReject)
	decide(t, coord, first, "B", approval.ActionApprove)

	count, err := svc.CountProcessedToday(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = svc.CountProcessedToday(context.Background(), "B")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	clock.Set(day.Add(24 * time.Hour))
	count, err = svc.CountProcessedToday(context.Background(), "A")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPendingService_RequiresIdentity(t *testing.T) {
	_, _, svc, _ := newPendingFixture(t)
	_, err := svc.ListPending(context.Background(), "")
	assert.ErrorIs(t, err, approval.ErrInvalidInput)
	_, err = svc.ListCompleted(context.Background(), "")
	assert.ErrorIs(t, err, approval.ErrInvalidInput)
	_, err = svc.CountProcessedToday(context.Background(), "")
	assert.ErrorIs(t, err, approval.ErrInvalidInput)
}
