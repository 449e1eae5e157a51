package budget

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/expentra/expentra/internal/apperr"
	"github.com/shopspring/decimal"
)

// StubBudgetRepo is an in-memory BudgetRepo for tests. AddToSpent is guarded
// by the same mutex as every other mutation, mirroring the atomicity of the
// SQL increment in the real store.
type StubBudgetRepo struct {
	mu     sync.Mutex
	nextId int
	data   map[int]Budget
}

func NewStubBudgetRepo() *StubBudgetRepo {
	return &StubBudgetRepo{data: map[int]Budget{}}
}

func (s *StubBudgetRepo) Store(ctx context.Context, budget Budget) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	budget.ID = s.nextId
	s.data[budget.ID] = budget
	return budget.ID, nil
}

func (s *StubBudgetRepo) FindById(ctx context.Context, id int) (Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	budget, ok := s.data[id]
	if !ok {
		return Budget{}, apperr.NotFound("budget %d", id)
	}
	return budget, nil
}

func (s *StubBudgetRepo) FindByOwnerAndPeriod(ctx context.Context, ownerId int, month int, year int) (Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, budget := range s.data {
		if budget.OwnerID == ownerId && budget.Month == month && budget.Year == year {
			return budget, nil
		}
	}
	return Budget{}, apperr.NotFound("budget for user %d in %d/%d", ownerId, month, year)
}

func (s *StubBudgetRepo) Update(ctx context.Context, budget Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.data[budget.ID]
	if !ok {
		return apperr.NotFound("budget %d", budget.ID)
	}
	budget.SpentAmount = stored.SpentAmount
	budget.CreatedAt = stored.CreatedAt
	s.data[budget.ID] = budget
	return nil
}

// AddToSpent applies the atomic spent increment. Expense stubs call this to
// emulate the transactional debit of the real store.
func (s *StubBudgetRepo) AddToSpent(id int, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	budget, ok := s.data[id]
	if !ok {
		return apperr.NotFound("budget %d", id)
	}
	budget.SpentAmount = budget.SpentAmount.Add(delta)
	s.data[id] = budget
	return nil
}

func (s *StubBudgetRepo) ListPaginated(ctx context.Context, page int, limit int) (PageResult, error) {
	return s.Search(ctx, SearchFilters{}, page, limit)
}

func (s *StubBudgetRepo) Search(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []Budget
	for _, b := range s.data {
		if matchesFilters(b, filters) {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	result := PageResult{
		Items:          []Budget{},
		Total:          len(matched),
		TotalAllocated: decimal.Zero,
		TotalSpent:     decimal.Zero,
	}
	for _, b := range matched {
		result.TotalAllocated = result.TotalAllocated.Add(b.AllocatedAmount)
		result.TotalSpent = result.TotalSpent.Add(b.SpentAmount)
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

func matchesFilters(b Budget, f SearchFilters) bool {
	if f.UserName != "" && !strings.Contains(strings.ToLower(b.OwnerName), strings.ToLower(f.UserName)) {
		return false
	}
	if f.Month != 0 && b.Month != f.Month {
		return false
	}
	if f.Year != 0 && b.Year != f.Year {
		return false
	}
	if f.MinAllocated != nil && b.AllocatedAmount.LessThan(*f.MinAllocated) {
		return false
	}
	if f.MaxAllocated != nil && b.AllocatedAmount.GreaterThan(*f.MaxAllocated) {
		return false
	}
	if f.MinSpent != nil && b.SpentAmount.LessThan(*f.MinSpent) {
		return false
	}
	if f.MaxSpent != nil && b.SpentAmount.GreaterThan(*f.MaxSpent) {
		return false
	}
	return true
}

func (s *StubBudgetRepo) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[int]Budget{}
	s.nextId = 0
}
