package reimbursement

import (
	"context"
	"errors"
	"fmt"

	"github.com/expentra/expentra/internal/apperr"
	"github.com/expentra/expentra/internal/cache"
	"github.com/expentra/expentra/internal/utils"
	"github.com/expentra/expentra/pkg/expense"
	"github.com/expentra/expentra/pkg/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	// Create opens a reimbursement request for an expense's reimbursable
	// remainder. The amount must equal the expense's FromReimbursement
	// exactly; anything else is an invariant violation.
	Create(ctx context.Context, expenseId int, amount decimal.Decimal) (Reimbursement, error)
	GetById(ctx context.Context, id int) (Reimbursement, error)
	// UserUpdate changes a pending reimbursement's amount. Allowed for the
	// original requester or a superadmin.
	UserUpdate(ctx context.Context, id int, amount decimal.Decimal) (Reimbursement, error)
	// Settle transitions to paid (true) or reverts to pending (false).
	// Superadmin only.
	Settle(ctx context.Context, id int, paid bool) (Reimbursement, error)
	ListAll(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error)
}

type ServiceImpl struct {
	repo        Repository
	expenseRepo expense.ExpenseRepo
	cache       cache.Cache
	notifier    Notifier
	clock       utils.Clock
}

func NewService(repo Repository, expenseRepo expense.ExpenseRepo, cache cache.Cache, notifier Notifier, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		repo:        repo,
		expenseRepo: expenseRepo,
		cache:       cache,
		notifier:    notifier,
		clock:       clock,
	}
}

func (s *ServiceImpl) Create(ctx context.Context, expenseId int, amount decimal.Decimal) (Reimbursement, error) {
	requester, err := user.CurrentUser(ctx)
	if err != nil {
		return Reimbursement{}, fmt.Errorf("failed to get current user: %w", err)
	}

	// The amount check always reads the ledger store directly. A cached
	// expense could be stale and let a mismatched amount through.
	exp, err := s.expenseRepo.FindById(ctx, expenseId)
	if err != nil {
		return Reimbursement{}, err
	}
	if !amount.Equal(exp.FromReimbursement) {
		return Reimbursement{}, apperr.Invariant(
			"reimbursement amount %s does not match the expense's reimbursable remainder %s",
			amount, exp.FromReimbursement)
	}

	// An expense carries at most one reimbursement; a second request would
	// pay the same remainder twice.
	if existing, err := s.repo.FindByExpense(ctx, expenseId); err == nil {
		return Reimbursement{}, apperr.Conflict(
			"expense %d already has reimbursement %d", expenseId, existing.ID)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return Reimbursement{}, err
	}

	reimbursement := Reimbursement{
		Uid:           uuid.NewString(),
		ExpenseID:     expenseId,
		RequestedBy:   requester.Id,
		RequesterName: requester.DisplayName,
		Amount:        amount,
	}
	id, err := s.repo.Store(ctx, reimbursement)
	if err != nil {
		return Reimbursement{}, err
	}
	reimbursement.ID = id

	s.cache.Invalidate(cache.KindReimbursements)

	return reimbursement, nil
}

func (s *ServiceImpl) GetById(ctx context.Context, id int) (Reimbursement, error) {
	key := cache.ReimbursementKey(id)
	if cached, ok := s.cache.Get(key); ok {
		if reimbursement, ok := cached.(Reimbursement); ok {
			return reimbursement, nil
		}
	}

	reimbursement, err := s.repo.FindById(ctx, id)
	if err != nil {
		return Reimbursement{}, err
	}
	s.cache.Set(key, reimbursement)
	return reimbursement, nil
}

func (s *ServiceImpl) UserUpdate(ctx context.Context, id int, amount decimal.Decimal) (Reimbursement, error) {
	actor, err := user.CurrentUser(ctx)
	if err != nil {
		return Reimbursement{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if !amount.IsPositive() {
		return Reimbursement{}, apperr.Validation("reimbursement amount must be positive, got %s", amount)
	}

	reimbursement, err := s.repo.FindById(ctx, id)
	if err != nil {
		return Reimbursement{}, err
	}
	if reimbursement.IsReimbursed {
		return Reimbursement{}, apperr.Conflict("reimbursement %d is already paid", id)
	}
	if actor.Id != reimbursement.RequestedBy && !actor.IsPrivileged() {
		return Reimbursement{}, apperr.Unauthorized(
			"user %d may not edit reimbursement %d requested by user %d",
			actor.Id, id, reimbursement.RequestedBy)
	}

	if err := s.repo.UpdateAmount(ctx, id, amount); err != nil {
		return Reimbursement{}, err
	}
	reimbursement.Amount = amount

	s.cache.Delete(cache.ReimbursementKey(id))
	s.cache.Invalidate(cache.KindReimbursements)

	return reimbursement, nil
}

func (s *ServiceImpl) Settle(ctx context.Context, id int, paid bool) (Reimbursement, error) {
	if _, err := user.RequireRole(ctx, user.RoleSuperadmin); err != nil {
		return Reimbursement{}, err
	}

	if paid {
		now := s.clock.Now()
		// The conditional update is the guard against two concurrent
		// settlements: only one of them flips the pending record.
		if err := s.repo.MarkPaid(ctx, id, now); err != nil {
			return Reimbursement{}, err
		}
	} else {
		if err := s.repo.Revert(ctx, id); err != nil {
			return Reimbursement{}, err
		}
	}

	s.cache.Delete(cache.ReimbursementKey(id))
	s.cache.Invalidate(cache.KindReimbursements)

	reimbursement, err := s.repo.FindById(ctx, id)
	if err != nil {
		return Reimbursement{}, err
	}

	if paid {
		log.Infof("reimbursement %d settled for user %d", id, reimbursement.RequestedBy)
		s.notifier.NotifySettled(ctx, reimbursement)
	}

	return reimbursement, nil
}

func (s *ServiceImpl) ListAll(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error) {
	gen := s.cache.Generation(cache.KindReimbursements)
	key := cache.ReimbursementSearchKey(gen, filters.cacheKey(), page, limit)
	if filters.isListing() {
		key = cache.ReimbursementListKey(gen, filters.Location, page, limit)
	}
	if cached, ok := s.cache.Get(key); ok {
		if result, ok := cached.(PageResult); ok {
			return result, nil
		}
	}

	result, err := s.repo.List(ctx, filters, page, limit)
	if err != nil {
		return PageResult{}, err
	}
	s.cache.Set(key, result)
	return result, nil
}
