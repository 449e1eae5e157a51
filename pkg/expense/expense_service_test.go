package expense

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/expentra/expentra/internal/apperr"
	"github.com/expentra/expentra/internal/cache"
	"github.com/expentra/expentra/pkg/budget"
	"github.com/expentra/expentra/pkg/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = user.User{Id: 1, Uid: "admin-uid", Username: "admin", DisplayName: "Admin", Role: user.RoleSuperadmin}
var alice = user.User{Id: 2, Uid: "alice-uid", Username: "alice", DisplayName: "Alice", Role: user.RoleUser}

var adminCtx = user.WithUser(context.Background(), admin)
var aliceCtx = user.WithUser(context.Background(), alice)

var budgetRepoStub = budget.NewStubBudgetRepo()
var expenseRepoStub = NewStubExpenseRepo(budgetRepoStub)
var userRepoStub = user.NewStubUserRepository()

var service ExpenseService

func setup(t *testing.T) func() {
	userRepoStub.CreateUser(context.Background(), admin)
	userRepoStub.CreateUser(context.Background(), alice)
	service = NewExpenseServiceImpl(expenseRepoStub, budgetRepoStub, userRepoStub, cache.NewStore(time.Minute, time.Minute))
	return func() {
		t.Log("Teardown after test")
		expenseRepoStub.Cleanup()
		budgetRepoStub.Cleanup()
		userRepoStub.Cleanup()
	}
}

func allocateBudget(t *testing.T, ownerId int, amount string, month, year int) budget.Budget {
	t.Helper()
	b := budget.Budget{
		Uid:             "budget-uid",
		OwnerID:         ownerId,
		AllocatedAmount: decimal.RequireFromString(amount),
		SpentAmount:     decimal.Zero,
		Month:           month,
		Year:            year,
	}
	id, err := budgetRepoStub.Store(context.Background(), b)
	require.NoError(t, err)
	b.ID = id
	return b
}

func TestExpenseServiceImpl_Create(t *testing.T) {
	t.Run("should fund the expense fully from the budget when headroom suffices", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		b := allocateBudget(t, alice.Id, "5000", 3, 2026)

		// when
		created, snapshot, err := service.Create(aliceCtx, CreateInput{
			Amount: decimal.NewFromInt(3000), Department: "IT", Month: 3, Year: 2026,
		})

		// then
		require.NoError(t, err)
		assert.True(t, created.FromAllocation.Equal(decimal.NewFromInt(3000)))
		assert.True(t, created.FromReimbursement.IsZero())
		assert.Equal(t, b.ID, snapshot.BudgetID)
		assert.True(t, snapshot.Spent.Equal(decimal.NewFromInt(3000)))
		assert.True(t, snapshot.Remaining.Equal(decimal.NewFromInt(2000)))

		// and the budget was debited
		debited, err := budgetRepoStub.FindById(context.Background(), b.ID)
		require.NoError(t, err)
		assert.True(t, debited.SpentAmount.Equal(decimal.NewFromInt(3000)))
	})

	t.Run("should split the expense when it exceeds the remaining headroom", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given a 5000 budget with 3000 already spent
		b := allocateBudget(t, alice.Id, "5000", 3, 2026)
		_, _, err := service.Create(aliceCtx, CreateInput{
			Amount: decimal.NewFromInt(3000), Department: "IT", Month: 3, Year: 2026,
		})
		require.NoError(t, err)

		// when a 4000 expense arrives
		created, snapshot, err := service.Create(aliceCtx, CreateInput{
			Amount: decimal.NewFromInt(4000), Department: "IT", Month: 3, Year: 2026,
		})

		// then only the 2000 headroom comes from the budget
		require.NoError(t, err)
		assert.True(t, created.FromAllocation.Equal(decimal.NewFromInt(2000)))
		assert.True(t, created.FromReimbursement.Equal(decimal.NewFromInt(2000)))
		assert.True(t, snapshot.Spent.Equal(decimal.NewFromInt(5000)))
		assert.True(t, snapshot.Remaining.IsZero())

		debited, err := budgetRepoStub.FindById(context.Background(), b.ID)
		require.NoError(t, err)
		assert.True(t, debited.SpentAmount.Equal(debited.AllocatedAmount))
	})

	t.Run("should split fractional amounts without losing a cent", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		allocateBudget(t, alice.Id, "100.10", 3, 2026)
		amount := decimal.RequireFromString("100.25")

		// when
		created, _, err := service.Create(aliceCtx, CreateInput{
			Amount: amount, Department: "IT", Month: 3, Year: 2026,
		})

		// then
		require.NoError(t, err)
		assert.True(t, created.FromAllocation.Equal(decimal.RequireFromString("100.10")))
		assert.True(t, created.FromReimbursement.Equal(decimal.RequireFromString("0.15")))
		assert.True(t, created.FromAllocation.Add(created.FromReimbursement).Equal(amount))
	})

	t.Run("should make the whole amount reimbursable when no budget exists for the period", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		created, snapshot, err := service.Create(aliceCtx, CreateInput{
			Amount: decimal.NewFromInt(1200), Department: "Travel", Month: 3, Year: 2026,
		})

		// then
		require.NoError(t, err)
		assert.True(t, created.FromAllocation.IsZero())
		assert.True(t, created.FromReimbursement.Equal(decimal.NewFromInt(1200)))
		assert.Zero(t, snapshot.BudgetID)
	})

	t.Run("should reject a non-positive amount", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, _, err := service.Create(aliceCtx, CreateInput{
			Amount: decimal.Zero, Month: 3, Year: 2026,
		})

		// then
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("should reject an invalid month", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, _, err := service.Create(aliceCtx, CreateInput{
			Amount: decimal.NewFromInt(100), Month: 0, Year: 2026,
		})

		// then
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("should return error when context has no user", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, _, err := service.Create(context.Background(), CreateInput{
			Amount: decimal.NewFromInt(100), Month: 3, Year: 2026,
		})

		// then
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get current user")
	})

	t.Run("should keep the budget's spent amount equal to the sum of debits under concurrency", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		b := allocateBudget(t, alice.Id, "5000", 3, 2026)
		const workers = 20
		amount := decimal.NewFromInt(400)

		// when
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := service.Create(aliceCtx, CreateInput{
					Amount: amount, Department: "IT", Month: 3, Year: 2026,
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		// then every expense splits exactly and the debits add up
		result, err := expenseRepoStub.ListPaginated(context.Background(), 1, workers)
		require.NoError(t, err)
		require.Equal(t, workers, result.Total)

		debitSum := decimal.Zero
		for _, e := range result.Items {
			assert.True(t, e.FromAllocation.Add(e.FromReimbursement).Equal(e.Amount))
			debitSum = debitSum.Add(e.FromAllocation)
		}
		final, err := budgetRepoStub.FindById(context.Background(), b.ID)
		require.NoError(t, err)
		assert.True(t, final.SpentAmount.Equal(debitSum))
	})
}

func TestExpenseServiceImpl_ListPaginated(t *testing.T) {
	t.Run("should reflect a new expense in a previously cached listing", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		_, _, err := service.Create(aliceCtx, CreateInput{
			Amount: decimal.NewFromInt(100), Department: "IT", Month: 3, Year: 2026,
		})
		require.NoError(t, err)
		first, err := service.ListPaginated(aliceCtx, 1, 10)
		require.NoError(t, err)
		require.Equal(t, 1, first.Total)

		// when
		_, _, err = service.Create(aliceCtx, CreateInput{
			Amount: decimal.NewFromInt(50), Department: "IT", Month: 3, Year: 2026,
		})
		require.NoError(t, err)
		second, err := service.ListPaginated(aliceCtx, 1, 10)

		// then
		require.NoError(t, err)
		assert.Equal(t, 2, second.Total)
		assert.True(t, second.TotalAmount.Equal(decimal.NewFromInt(150)))
	})
}

func TestExpenseServiceImpl_Search(t *testing.T) {
	t.Run("should filter by department and amount range", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		_, _, err := service.Create(aliceCtx, CreateInput{
			Amount: decimal.NewFromInt(100), Department: "IT", Month: 3, Year: 2026,
		})
		require.NoError(t, err)
		_, _, err = service.Create(aliceCtx, CreateInput{
			Amount: decimal.NewFromInt(900), Department: "Travel", Month: 3, Year: 2026,
		})
		require.NoError(t, err)
		min := decimal.NewFromInt(500)

		// when
		result, err := service.Search(aliceCtx, SearchFilters{Department: "Travel", MinAmount: &min}, 1, 10)

		// then
		require.NoError(t, err)
		require.Equal(t, 1, result.Total)
		assert.Equal(t, "Travel", result.Items[0].Department)
	})
}

func TestExpenseServiceImpl_UpdateFields(t *testing.T) {
	t.Run("should patch approval without touching the split", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		allocateBudget(t, alice.Id, "5000", 3, 2026)
		created, _, err := service.Create(aliceCtx, CreateInput{
			Amount: decimal.NewFromInt(3000), Department: "IT", Month: 3, Year: 2026,
		})
		require.NoError(t, err)
		approved := true

		// when
		updated, err := service.UpdateFields(adminCtx, created.ID, UpdatePatch{IsApproved: &approved})

		// then
		require.NoError(t, err)
		assert.True(t, updated.IsApproved)
		assert.True(t, updated.FromAllocation.Equal(created.FromAllocation))
		assert.True(t, updated.FromReimbursement.Equal(created.FromReimbursement))
	})

	t.Run("should reject update by a regular user", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		created, _, err := service.Create(aliceCtx, CreateInput{
			Amount: decimal.NewFromInt(100), Month: 3, Year: 2026,
		})
		require.NoError(t, err)
		approved := true

		// when
		_, err = service.UpdateFields(aliceCtx, created.ID, UpdatePatch{IsApproved: &approved})

		// then
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}
