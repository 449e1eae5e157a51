package budget

import (
	"context"
	"testing"
	"time"

	"github.com/expentra/expentra/internal/apperr"
	"github.com/expentra/expentra/internal/cache"
	"github.com/expentra/expentra/pkg/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = user.User{Id: 1, Uid: "admin-uid", Username: "admin", DisplayName: "Admin", Role: user.RoleSuperadmin}
var alice = user.User{Id: 2, Uid: "alice-uid", Username: "alice", DisplayName: "Alice", Role: user.RoleUser}
var bob = user.User{Id: 3, Uid: "bob-uid", Username: "bob", DisplayName: "Bob", Role: user.RoleUser}

var adminCtx = user.WithUser(context.Background(), admin)
var aliceCtx = user.WithUser(context.Background(), alice)

var budgetRepoStub = NewStubBudgetRepo()
var userRepoStub = user.NewStubUserRepository()

var service BudgetService

func setup(t *testing.T) func() {
	userRepoStub.CreateUser(context.Background(), admin)
	userRepoStub.CreateUser(context.Background(), alice)
	userRepoStub.CreateUser(context.Background(), bob)
	service = NewBudgetServiceImpl(budgetRepoStub, userRepoStub, cache.NewStore(time.Minute, time.Minute))
	return func() {
		t.Log("Teardown after test")
		budgetRepoStub.Cleanup()
		userRepoStub.Cleanup()
	}
}

func TestBudgetServiceImpl_Allocate(t *testing.T) {
	t.Run("should allocate a budget with zero spent amount", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		created, err := service.Allocate(adminCtx, alice.Id, decimal.NewFromInt(5000), 3, 2026)

		// then
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.NotEmpty(t, created.Uid)
		assert.Equal(t, alice.Id, created.OwnerID)
		assert.Equal(t, "Alice", created.OwnerName)
		assert.True(t, created.AllocatedAmount.Equal(decimal.NewFromInt(5000)))
		assert.True(t, created.SpentAmount.IsZero())
	})

	t.Run("should reject allocation by a regular user", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.Allocate(aliceCtx, alice.Id, decimal.NewFromInt(5000), 3, 2026)

		// then
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("should reject a non-positive amount", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.Allocate(adminCtx, alice.Id, decimal.Zero, 3, 2026)

		// then
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("should reject an invalid month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.Allocate(adminCtx, alice.Id, decimal.NewFromInt(100), 13, 2026)

		// then
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("should fail when the owner does not exist", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.Allocate(adminCtx, 999, decimal.NewFromInt(100), 3, 2026)

		// then
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestBudgetServiceImpl_Edit(t *testing.T) {
	t.Run("should patch the allocated amount only", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		created, err := service.Allocate(adminCtx, alice.Id, decimal.NewFromInt(5000), 3, 2026)
		require.NoError(t, err)
		newAmount := decimal.NewFromInt(7500)

		// when
		updated, err := service.Edit(adminCtx, created.ID, EditPatch{Amount: &newAmount})

		// then
		require.NoError(t, err)
		assert.True(t, updated.AllocatedAmount.Equal(newAmount))
		assert.Equal(t, alice.Id, updated.OwnerID)
		assert.Equal(t, 3, updated.Month)
		assert.Equal(t, 2026, updated.Year)
	})

	t.Run("should reassign the budget to a new owner", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		created, err := service.Allocate(adminCtx, alice.Id, decimal.NewFromInt(5000), 3, 2026)
		require.NoError(t, err)

		// when
		updated, err := service.Edit(adminCtx, created.ID, EditPatch{OwnerID: &bob.Id})

		// then
		require.NoError(t, err)
		assert.Equal(t, bob.Id, updated.OwnerID)
		assert.Equal(t, "Bob", updated.OwnerName)

		// and the budget is attached to exactly one owner
		_, err = budgetRepoStub.FindByOwnerAndPeriod(context.Background(), alice.Id, 3, 2026)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		moved, err := budgetRepoStub.FindByOwnerAndPeriod(context.Background(), bob.Id, 3, 2026)
		require.NoError(t, err)
		assert.Equal(t, created.ID, moved.ID)
	})

	t.Run("should return not found for an unknown budget", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.Edit(adminCtx, 999, EditPatch{})

		// then
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("should reject edit by a regular user", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		created, err := service.Allocate(adminCtx, alice.Id, decimal.NewFromInt(5000), 3, 2026)
		require.NoError(t, err)

		// when
		_, err = service.Edit(aliceCtx, created.ID, EditPatch{})

		// then
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}

func TestBudgetServiceImpl_GetById(t *testing.T) {
	t.Run("should return the fresh budget after an edit", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		created, err := service.Allocate(adminCtx, alice.Id, decimal.NewFromInt(5000), 3, 2026)
		require.NoError(t, err)
		_, err = service.GetById(adminCtx, created.ID) // warm the cache
		require.NoError(t, err)
		newAmount := decimal.NewFromInt(6000)
		_, err = service.Edit(adminCtx, created.ID, EditPatch{Amount: &newAmount})
		require.NoError(t, err)

		// when
		found, err := service.GetById(adminCtx, created.ID)

		// then
		require.NoError(t, err)
		assert.True(t, found.AllocatedAmount.Equal(newAmount))
	})
}

func TestBudgetServiceImpl_ListPaginated(t *testing.T) {
	t.Run("should reflect a new allocation in a previously cached listing", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		_, err := service.Allocate(adminCtx, alice.Id, decimal.NewFromInt(1000), 3, 2026)
		require.NoError(t, err)
		first, err := service.ListPaginated(adminCtx, 1, 10)
		require.NoError(t, err)
		require.Equal(t, 1, first.Total)

		// when
		_, err = service.Allocate(adminCtx, bob.Id, decimal.NewFromInt(2000), 3, 2026)
		require.NoError(t, err)
		second, err := service.ListPaginated(adminCtx, 1, 10)

		// then
		require.NoError(t, err)
		assert.Equal(t, 2, second.Total)
		assert.True(t, second.TotalAllocated.Equal(decimal.NewFromInt(3000)))
	})
}

func TestBudgetServiceImpl_Search(t *testing.T) {
	t.Run("should filter by owner name and period", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		_, err := service.Allocate(adminCtx, alice.Id, decimal.NewFromInt(1000), 3, 2026)
		require.NoError(t, err)
		_, err = service.Allocate(adminCtx, bob.Id, decimal.NewFromInt(2000), 3, 2026)
		require.NoError(t, err)
		_, err = service.Allocate(adminCtx, alice.Id, decimal.NewFromInt(3000), 4, 2026)
		require.NoError(t, err)

		// when
		result, err := service.Search(adminCtx, SearchFilters{UserName: "ali", Month: 3, Year: 2026}, 1, 10)

		// then
		require.NoError(t, err)
		require.Equal(t, 1, result.Total)
		assert.Equal(t, "Alice", result.Items[0].OwnerName)
		assert.True(t, result.TotalAllocated.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("should filter by allocated amount range", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		_, err := service.Allocate(adminCtx, alice.Id, decimal.NewFromInt(1000), 3, 2026)
		require.NoError(t, err)
		_, err = service.Allocate(adminCtx, bob.Id, decimal.NewFromInt(5000), 3, 2026)
		require.NoError(t, err)
		min := decimal.NewFromInt(2000)

		// when
		result, err := service.Search(adminCtx, SearchFilters{MinAllocated: &min}, 1, 10)

		// then
		require.NoError(t, err)
		require.Equal(t, 1, result.Total)
		assert.Equal(t, "Bob", result.Items[0].OwnerName)
	})
}
