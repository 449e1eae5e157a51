package user

import (
	"context"
	"sort"

	"github.com/expentra/expentra/internal/apperr"
)

type StubUserRepository struct {
	nextId    int
	data      map[int]User
	budgetIds map[int][]int
}

func NewStubUserRepository() *StubUserRepository {
	return &StubUserRepository{
		nextId:    0,
		data:      map[int]User{},
		budgetIds: map[int][]int{},
	}
}

func (s *StubUserRepository) CreateUser(ctx context.Context, user User) (int, error) {
	s.nextId++
	user.Id = s.nextId
	s.data[s.nextId] = user
	return s.nextId, nil
}

func (s *StubUserRepository) GetUser(ctx context.Context, id int) (User, error) {
	user, ok := s.data[id]
	if !ok {
		return User{}, apperr.NotFound("user %d", id)
	}
	return user, nil
}

func (s *StubUserRepository) GetUserByUid(ctx context.Context, uid string) (User, error) {
	for _, user := range s.data {
		if user.Uid == uid {
			return user, nil
		}
	}
	return User{}, apperr.NotFound("user %s", uid)
}

func (s *StubUserRepository) GetAllUsers(ctx context.Context) ([]User, error) {
	var users []User
	for _, user := range s.data {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Id < users[j].Id })
	return users, nil
}

func (s *StubUserRepository) ListBudgetIds(ctx context.Context, userId int) ([]int, error) {
	ids := append([]int{}, s.budgetIds[userId]...)
	sort.Ints(ids)
	return ids, nil
}

// AttachBudget mirrors what a budget insert or owner reassignment does to the
// ownership index in the real store.
func (s *StubUserRepository) AttachBudget(userId int, budgetId int) {
	s.budgetIds[userId] = append(s.budgetIds[userId], budgetId)
}

func (s *StubUserRepository) DetachBudget(userId int, budgetId int) {
	ids := s.budgetIds[userId]
	for i, id := range ids {
		if id == budgetId {
			s.budgetIds[userId] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

func (s *StubUserRepository) Cleanup() {
	s.data = map[int]User{}
	s.budgetIds = map[int][]int{}
	s.nextId = 0
}
