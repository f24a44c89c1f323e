package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/erp-approvals/internal/application/workflow"
	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
)

func TestBalanceService_Get(t *testing.T) {
	store := newTestStore(t)
	svc := NewBalanceService(store, 15)

	b, err := svc.Get(context.Background(), "S", 2024)
	require.NoError(t, err)
	assert.Equal(t, entity.Balance{Owner: "S", Year: 2024, Total: 15, Remaining: 15}, *b)

	coord := workflow.NewCoordinator(store, workflow.WithDefaultVacationDays(15))
	ref := createRequest(t, coord, entity.KindVacation, "S", "trip", approval.Approvers{First: []string{"A"}})
	decide(t, coord, ref, "A", approval.ActionApprove)

	b, err = svc.Get(context.Background(), "S", 2024)
	require.NoError(t, err)
	assert.Equal(t, 1.0, b.Used)
	assert.Equal(t, 14.0, b.Remaining)
}

func TestBalanceService_Validation(t *testing.T) {
	svc := NewBalanceService(newTestStore(t), 15)
	for _, year := range []int{0, 10000} {
		_, err := svc.Get(context.Background(), "S", year)
		assert.ErrorIs(t, err, approval.ErrInvalidInput)
	}
	_, err := svc.Get(context.Background(), "", 2024)
	assert.ErrorIs(t, err, approval.ErrInvalidInput)
}
