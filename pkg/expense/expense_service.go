package expense

import (
	"context"
	"errors"
	"fmt"

	"github.com/expentra/expentra/internal/apperr"
	"github.com/expentra/expentra/internal/cache"
	"github.com/expentra/expentra/pkg/budget"
	"github.com/expentra/expentra/pkg/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type ExpenseService interface {
	// Create records an expense for the acting user, splits it between the
	// matching budget and the reimbursable remainder, and debits the budget.
	Create(ctx context.Context, input CreateInput) (Expense, BudgetSnapshot, error)
	GetById(ctx context.Context, id int) (Expense, error)
	ListPaginated(ctx context.Context, page int, limit int) (PageResult, error)
	Search(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error)
	// UpdateFields applies a partial patch. Superadmin only.
	UpdateFields(ctx context.Context, id int, patch UpdatePatch) (Expense, error)
}

type ExpenseServiceImpl struct {
	repo       ExpenseRepo
	budgetRepo budget.BudgetRepo
	userRepo   user.Repo
	cache      cache.Cache
}

func NewExpenseServiceImpl(repo ExpenseRepo, budgetRepo budget.BudgetRepo, userRepo user.Repo, cache cache.Cache) *ExpenseServiceImpl {
	return &ExpenseServiceImpl{repo: repo, budgetRepo: budgetRepo, userRepo: userRepo, cache: cache}
}

func (s *ExpenseServiceImpl) Create(ctx context.Context, input CreateInput) (Expense, BudgetSnapshot, error) {
	ownerId, err := user.CurrentId(ctx)
	if err != nil {
		return Expense{}, BudgetSnapshot{}, fmt.Errorf("failed to get current user: %w", err)
	}
	owner, err := s.userRepo.GetUser(ctx, ownerId)
	if err != nil {
		return Expense{}, BudgetSnapshot{}, fmt.Errorf("failed to resolve expense owner: %w", err)
	}

	if !input.Amount.IsPositive() {
		return Expense{}, BudgetSnapshot{}, apperr.Validation("expense amount must be positive, got %s", input.Amount)
	}
	if input.Month < 1 || input.Month > 12 {
		return Expense{}, BudgetSnapshot{}, apperr.Validation("month %d outside 1-12", input.Month)
	}
	if input.Year < 2000 {
		return Expense{}, BudgetSnapshot{}, apperr.Validation("year %d before 2000", input.Year)
	}

	// Locate the owner's budget for the period. Without one, the whole
	// amount becomes reimbursable and no ceiling applies.
	var matched *budget.Budget
	b, err := s.budgetRepo.FindByOwnerAndPeriod(ctx, owner.Id, input.Month, input.Year)
	if err == nil {
		matched = &b
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return Expense{}, BudgetSnapshot{}, err
	}

	fromAllocation, fromReimbursement := split(input.Amount, matched)

	expense := Expense{
		Uid:               uuid.NewString(),
		OwnerID:           owner.Id,
		OwnerName:         owner.DisplayName,
		Amount:            input.Amount,
		FromAllocation:    fromAllocation,
		FromReimbursement: fromReimbursement,
		Department:        input.Department,
		SubDepartment:     input.SubDepartment,
		Month:             input.Month,
		Year:              input.Year,
		IsReimbursed:      input.IsReimbursed,
		ProofRef:          input.ProofRef,
	}

	budgetId := 0
	if matched != nil {
		budgetId = matched.ID
	}
	id, err := s.repo.StoreWithDebit(ctx, expense, budgetId)
	if err != nil {
		return Expense{}, BudgetSnapshot{}, err
	}
	expense.ID = id

	s.cache.Invalidate(cache.KindExpenses)
	var snapshot BudgetSnapshot
	if matched != nil {
		s.cache.Delete(cache.BudgetKey(matched.ID))
		s.cache.Invalidate(cache.KindBudgets)

		spent := matched.SpentAmount.Add(fromAllocation)
		remaining := matched.AllocatedAmount.Sub(spent)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		snapshot = BudgetSnapshot{
			BudgetID:  matched.ID,
			Allocated: matched.AllocatedAmount,
			Spent:     spent,
			Remaining: remaining,
		}
		log.Debugf("expense %d recorded: %s from budget %d, %s reimbursable",
			id, fromAllocation, matched.ID, fromReimbursement)
	} else {
		log.Debugf("expense %d recorded with no budget for %d/%d, %s fully reimbursable",
			id, input.Month, input.Year, fromReimbursement)
	}

	return expense, snapshot, nil
}

// split divides amount between the budget's remaining headroom and the
// reimbursable remainder. The two parts always sum exactly to amount.
func split(amount decimal.Decimal, b *budget.Budget) (fromAllocation, fromReimbursement decimal.Decimal) {
	if b == nil {
		return decimal.Zero, amount
	}
	headroom := b.Remaining()
	if amount.LessThanOrEqual(headroom) {
		return amount, decimal.Zero
	}
	return headroom, amount.Sub(headroom)
}

func (s *ExpenseServiceImpl) GetById(ctx context.Context, id int) (Expense, error) {
	key := cache.ExpenseKey(id)
	if cached, ok := s.cache.Get(key); ok {
		if expense, ok := cached.(Expense); ok {
			return expense, nil
		}
	}

	expense, err := s.repo.FindById(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	s.cache.Set(key, expense)
	return expense, nil
}

func (s *ExpenseServiceImpl) ListPaginated(ctx context.Context, page int, limit int) (PageResult, error) {
	key := cache.ExpenseListKey(s.cache.Generation(cache.KindExpenses), page, limit)
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

func (s *ExpenseServiceImpl) Search(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error) {
	key := cache.ExpenseSearchKey(s.cache.Generation(cache.KindExpenses), filters.cacheKey(), page, limit)
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

func (s *ExpenseServiceImpl) UpdateFields(ctx context.Context, id int, patch UpdatePatch) (Expense, error) {
	if _, err := user.RequireRole(ctx, user.RoleSuperadmin); err != nil {
		return Expense{}, err
	}

	expense, err := s.repo.FindById(ctx, id)
	if err != nil {
		return Expense{}, err
	}

	if patch.Department != nil {
		expense.Department = *patch.Department
	}
	if patch.SubDepartment != nil {
		expense.SubDepartment = *patch.SubDepartment
	}
	if patch.IsApproved != nil {
		expense.IsApproved = *patch.IsApproved
	}
	if patch.IsReimbursed != nil {
		expense.IsReimbursed = *patch.IsReimbursed
	}

	if err := s.repo.Update(ctx, expense); err != nil {
		return Expense{}, err
	}

	s.cache.Delete(cache.ExpenseKey(id))
	s.cache.Invalidate(cache.KindExpenses)

	return expense, nil
}
