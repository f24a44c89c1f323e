package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/erp-approvals/internal/application/port"
	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
)

// BalanceService reads vacation balances
type BalanceService interface {
	// Get returns the owner's balance for a year. A year without a stored
	// balance reports the default allowance with nothing used.
	Get(ctx context.Context, owner string, year int) (*entity.Balance, error)
}

type balanceServiceImpl struct {
	store       port.DocumentStore
	defaultDays float64
}

// NewBalanceService creates a new BalanceService
func NewBalanceService(store port.DocumentStore, defaultDays float64) BalanceService {
	return &balanceServiceImpl{
		store:       store,
		defaultDays: defaultDays,
	}
}

// Get reads the balance document
func (s *balanceServiceImpl) Get(ctx context.Context, owner string, year int) (*entity.Balance, error) {
	if owner == "" || year < 1970 || year > 9999 {
		return nil, fmt.Errorf("%w: owner and a valid year are required", approval.ErrInvalidInput)
	}

	snap, err := s.store.Get(ctx, port.BalancePath(owner, year))
	if errors.Is(err, port.ErrDocumentNotFound) {
		return &entity.Balance{
			Owner:     owner,
			Year:      year,
			Total:     s.defaultDays,
			Remaining: s.defaultDays,
		}, nil
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
