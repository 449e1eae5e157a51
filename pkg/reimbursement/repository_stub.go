package reimbursement

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/expentra/expentra/internal/apperr"
	"github.com/shopspring/decimal"
)

type StubRepository struct {
	mu     sync.Mutex
	nextId int
	data   map[int]Reimbursement
	// locations maps requester id to location, standing in for the user join.
	locations map[int]string
}

func NewStubRepository() *StubRepository {
	return &StubRepository{data: map[int]Reimbursement{}, locations: map[int]string{}}
}

func (s *StubRepository) SetLocation(userId int, location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[userId] = location
}

func (s *StubRepository) Store(ctx context.Context, reimbursement Reimbursement) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	reimbursement.ID = s.nextId
	s.data[reimbursement.ID] = reimbursement
	return reimbursement.ID, nil
}

func (s *StubRepository) FindById(ctx context.Context, id int) (Reimbursement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reimbursement, ok := s.data[id]
	if !ok {
		return Reimbursement{}, apperr.NotFound("reimbursement %d", id)
	}
	return reimbursement, nil
}

func (s *StubRepository) FindByExpense(ctx context.Context, expenseId int) (Reimbursement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, reimbursement := range s.data {
		if reimbursement.ExpenseID == expenseId {
			return reimbursement, nil
		}
	}
	return Reimbursement{}, apperr.NotFound("reimbursement for expense %d", expenseId)
}

func (s *StubRepository) UpdateAmount(ctx context.Context, id int, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reimbursement, ok := s.data[id]
	if !ok {
		return apperr.NotFound("reimbursement %d", id)
	}
	if reimbursement.IsReimbursed {
		return apperr.Conflict("reimbursement %d is already paid", id)
	}
	reimbursement.Amount = amount
	s.data[id] = reimbursement
	return nil
}

func (s *StubRepository) MarkPaid(ctx context.Context, id int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reimbursement, ok := s.data[id]
	if !ok {
		return apperr.NotFound("reimbursement %d", id)
	}
	if reimbursement.IsReimbursed {
		return apperr.Conflict("reimbursement %d is already paid", id)
	}
	reimbursement.IsReimbursed = true
	reimbursement.ReimbursedAt = &at
	s.data[id] = reimbursement
	return nil
}

func (s *StubRepository) Revert(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reimbursement, ok := s.data[id]
	if !ok {
		return apperr.NotFound("reimbursement %d", id)
	}
	reimbursement.IsReimbursed = false
	reimbursement.ReimbursedAt = nil
	s.data[id] = reimbursement
	return nil
}

func (s *StubRepository) List(ctx context.Context, filters SearchFilters, page int, limit int) (PageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []Reimbursement
	for _, r := range s.data {
		if s.matches(r, filters) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	result := PageResult{
		Items: []Reimbursement{},
		Total: len(matched),
		Stats: Stats{
			Count:         len(matched),
			TotalAmount:   decimal.Zero,
			PaidAmount:    decimal.Zero,
			PendingAmount: decimal.Zero,
		},
	}
	for _, r := range matched {
		result.Stats.TotalAmount = result.Stats.TotalAmount.Add(r.Amount)
		if r.IsReimbursed {
			result.Stats.PaidCount++
			result.Stats.PaidAmount = result.Stats.PaidAmount.Add(r.Amount)
		} else {
			result.Stats.PendingCount++
			result.Stats.PendingAmount = result.Stats.PendingAmount.Add(r.Amount)
		}
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

func (s *StubRepository) matches(r Reimbursement, f SearchFilters) bool {
	if f.RequestedBy != 0 && r.RequestedBy != f.RequestedBy {
		return false
	}
	if f.Location != "" && s.locations[r.RequestedBy] != f.Location {
		return false
	}
	if f.IsReimbursed != nil && r.IsReimbursed != *f.IsReimbursed {
		return false
	}
	if f.MinAmount != nil && r.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && r.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}

func (s *StubRepository) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[int]Reimbursement{}
	s.locations = map[int]string{}
	s.nextId = 0
}
