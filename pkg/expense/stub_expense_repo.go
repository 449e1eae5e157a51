package expense

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/expentra/expentra/internal/apperr"
	"github.com/expentra/expentra/pkg/budget"
	"github.com/shopspring/decimal"
)

// StubExpenseRepo is an in-memory ExpenseRepo for tests. It shares a
// StubBudgetRepo so StoreWithDebit can emulate the transactional debit.
type StubExpenseRepo struct {
	mu      sync.Mutex
	nextId  int
	data    map[int]Expense
	budgets *budget.StubBudgetRepo
}

func NewStubExpenseRepo(budgets *budget.StubBudgetRepo) *StubExpenseRepo {
	return &StubExpenseRepo{data: map[int]Expense{}, budgets: budgets}
}

func (s *StubExpenseRepo) StoreWithDebit(ctx context.Context, expense Expense, budgetId int) (int, error) {
	if budgetId != 0 && expense.FromAllocation.IsPositive() {
		if err := s.budgets.AddToSpent(budgetId, expense.FromAllocation); err != nil {
			return 0, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	expense.ID = s.nextId
	s.data[expense.ID] = expense
	return expense.ID, nil
}

func (s *StubExpenseRepo) FindById(ctx context.Context, id int) (Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expense, ok := s.data[id]
	if !ok {
		return Expense{}, apperr.NotFound("expense %d", id)
	}
	return expense, nil
}

func (s *StubExpenseRepo) Update(ctx context.Context, expense Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[expense.ID]; !ok {
		return apperr.NotFound("expense %d", expense.ID)
	}
	s.data[expense.ID] = expense
	return nil
}

func (s *StubExpenseRepo) ListPaginated(ctx context.Context, page int, limit int) (PageResult, error) {
	return s.Search(ctx, SearchFilters{}, page, limit)
}

func (s *StubExpenseRepo) Search(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []Expense
	for _, e := range s.data {
		if matchesFilters(e, filters) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	result := PageResult{
		Items:             []Expense{},
		Total:             len(matched),
		TotalAmount:       decimal.Zero,
		TotalReimbursable: decimal.Zero,
	}
	for _, e := range matched {
		result.TotalAmount = result.TotalAmount.Add(e.Amount)
		result.TotalReimbursable = result.TotalReimbursable.Add(e.FromReimbursement)
	}

	start := (page - 1) * limit
	if start < len(matched) {
		end := start + limit
		if end > len(matched) {
			end = len(matched)
		}
		result.Items = append(result.Items, matched[start:end]...)
	}
	return result, nil
}

func matchesFilters(e Expense, f SearchFilters) bool {
	if f.Payee != "" && !strings.Contains(strings.ToLower(e.OwnerName), strings.ToLower(f.Payee)) {
		return false
	}
	if f.Department != "" && e.Department != f.Department {
		return false
	}
	if f.Month != 0 && e.Month != f.Month {
		return false
	}
	if f.Year != 0 && e.Year != f.Year {
		return false
	}
	if f.IsApproved != nil && e.IsApproved != *f.IsApproved {
		return false
	}
	if f.IsReimbursed != nil && e.IsReimbursed != *f.IsReimbursed {
		return false
	}
	if f.MinAmount != nil && e.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && e.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}

func (s *StubExpenseRepo) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[int]Expense{}
	s.nextId = 0
}
