package budget

import (
	"context"
	"fmt"

	"github.com/expentra/expentra/internal/apperr"
	"github.com/expentra/expentra/internal/cache"
	"github.com/expentra/expentra/pkg/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type BudgetService interface {
	// Allocate creates a budget for the owner. The allocating actor must be
	// a superadmin.
	Allocate(ctx context.Context, ownerId int, amount decimal.Decimal, month int, year int) (Budget, error)
	// Edit patches amount, period or owner. Superadmin only.
	Edit(ctx context.Context, id int, patch EditPatch) (Budget, error)
	GetById(ctx context.Context, id int) (Budget, error)
	ListPaginated(ctx context.Context, page int, limit int) (PageResult, error)
	Search(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error)
}

type BudgetServiceImpl struct {
	repo     BudgetRepo
	userRepo user.Repo
	cache    cache.Cache
}

func NewBudgetServiceImpl(repo BudgetRepo, userRepo user.Repo, cache cache.Cache) *BudgetServiceImpl {
	return &BudgetServiceImpl{repo: repo, userRepo: userRepo, cache: cache}
}

func validatePeriod(month int, year int) error {
	if month < 1 || month > 12 {
		return apperr.Validation("month %d outside 1-12", month)
	}
	if year < 2000 {
		return apperr.Validation("year %d before 2000", year)
	}
	return nil
}

func (s *BudgetServiceImpl) Allocate(ctx context.Context, ownerId int, amount decimal.Decimal, month int, year int) (Budget, error) {
	if _, err := user.RequireRole(ctx, user.RoleSuperadmin); err != nil {
		return Budget{}, err
	}
	if !amount.IsPositive() {
		return Budget{}, apperr.Validation("allocated amount must be positive, got %s", amount)
	}
	if err := validatePeriod(month, year); err != nil {
		return Budget{}, err
	}

	owner, err := s.userRepo.GetUser(ctx, ownerId)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to resolve budget owner: %w", err)
	}

	budget := Budget{
		Uid:             uuid.NewString(),
		OwnerID:         owner.Id,
		OwnerName:       owner.DisplayName,
		AllocatedAmount: amount,
		SpentAmount:     decimal.Zero,
		Month:           month,
		Year:            year,
	}
	id, err := s.repo.Store(ctx, budget)
	if err != nil {
		return Budget{}, err
	}
	budget.ID = id

	s.cache.Delete(cache.BudgetKey(id))
	s.cache.Invalidate(cache.KindBudgets)

	return budget, nil
}

func (s *BudgetServiceImpl) Edit(ctx context.Context, id int, patch EditPatch) (Budget, error) {
	if _, err := user.RequireRole(ctx, user.RoleSuperadmin); err != nil {
		return Budget{}, err
	}

	budget, err := s.repo.FindById(ctx, id)
	if err != nil {
		return Budget{}, err
	}

	if patch.Amount != nil {
		if !patch.Amount.IsPositive() {
			return Budget{}, apperr.Validation("allocated amount must be positive, got %s", patch.Amount)
		}
		budget.AllocatedAmount = *patch.Amount
	}
	if patch.Month != nil {
		budget.Month = *patch.Month
	}
	if patch.Year != nil {
		budget.Year = *patch.Year
	}
	if err := validatePeriod(budget.Month, budget.Year); err != nil {
		return Budget{}, err
	}
	if patch.OwnerID != nil && *patch.OwnerID != budget.OwnerID {
		newOwner, err := s.userRepo.GetUser(ctx, *patch.OwnerID)
		if err != nil {
			return Budget{}, fmt.Errorf("failed to resolve new budget owner: %w", err)
		}
		log.Infof("reassigning budget %d from user %d to user %d", id, budget.OwnerID, newOwner.Id)
		budget.OwnerID = newOwner.Id
		budget.OwnerName = newOwner.DisplayName
	}

	// The single-statement update moves ownership atomically: the budget is
	// never attached to both users, and a retry after a partial failure is
	// idempotent.
	if err := s.repo.Update(ctx, budget); err != nil {
		return Budget{}, err
	}

	s.cache.Delete(cache.BudgetKey(id))
	s.cache.Invalidate(cache.KindBudgets)

	return budget, nil
}

func (s *BudgetServiceImpl) GetById(ctx context.Context, id int) (Budget, error) {
	key := cache.BudgetKey(id)
	if cached, ok := s.cache.Get(key); ok {
		if budget, ok := cached.(Budget); ok {
			return budget, nil
		}
	}

	budget, err := s.repo.FindById(ctx, id)
	if err != nil {
		return Budget{}, err
	}
	s.cache.Set(key, budget)
	return budget, nil
}

func (s *BudgetServiceImpl) ListPaginated(ctx context.Context, page int, limit int) (PageResult, error) {
	key := cache.BudgetListKey(s.cache.Generation(cache.KindBudgets), page, limit)
	if cached, ok := s.cache.Get(key); ok {
		if result, ok := cached.(PageResult); ok {
			return result, nil
		}
	}

	result, err := s.repo.ListPaginated(ctx, page, limit)
	if err != nil {
		return PageResult{}, err
	}
	s.cache.Set(key, result)
	return result, nil
}

func (s *BudgetServiceImpl) Search(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error) {
	key := cache.BudgetSearchKey(s.cache.Generation(cache.KindBudgets), filters.cacheKey(), page, limit)
	if cached, ok := s.cache.Get(key); ok {
		if result, ok := cached.(PageResult); ok {
			return result, nil
		}
	}

	result, err := s.repo.Search(ctx, filters, page, limit)
	if err != nil {
		return PageResult{}, err
	}
	s.cache.Set(key, result)
	return result, nil
}
