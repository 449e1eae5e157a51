package budget

import (
	"context"
	"os"
	"testing"

	"github.com/expentra/expentra/internal/apperr"
	"github.com/expentra/expentra/internal/test_utils"
	"github.com/expentra/expentra/pkg/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var pgContainer *postgres.PostgresContainer
var db *pgxpool.Pool

var adminId int
var memberId int

func TestMain(m *testing.M) {
	var openDb func() *pgxpool.Pool
	pgContainer, openDb = test_utils.TestWithDB()
	db = openDb()

	ctx := context.Background()
	userRepo := user.NewUserRepo(db)
	var err error
	if adminId, err = userRepo.CreateUser(ctx, test_utils.TestSuperadmin); err != nil {
		panic(err)
	}
	if memberId, err = userRepo.CreateUser(ctx, test_utils.TestMember); err != nil {
		panic(err)
	}

	code := m.Run()
	db.Close()
	_ = pgContainer.Terminate(ctx)
	os.Exit(code)
}

func storeTestBudget(t *testing.T, repo BudgetRepo, ownerId int, amount string, month, year int) Budget {
	t.Helper()
	b := Budget{
		Uid:             uuid.NewString(),
		OwnerID:         ownerId,
		AllocatedAmount: decimal.RequireFromString(amount),
		SpentAmount:     decimal.Zero,
		Month:           month,
		Year:            year,
	}
	id, err := repo.Store(context.Background(), b)
	require.NoError(t, err)
	b.ID = id
	return b
}

func TestBudgetRepoImpl_Store(t *testing.T) {
	// given
	ctx := context.Background()
	repo := NewBudgetRepo(db)

	// when
	created := storeTestBudget(t, repo, adminId, "1500.50", 1, 2026)

	// then
	stored, err := repo.FindById(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.ID)
	assert.Equal(t, adminId, stored.OwnerID)
	assert.Equal(t, test_utils.TestSuperadmin.DisplayName, stored.OwnerName)
	assert.True(t, stored.AllocatedAmount.Equal(decimal.RequireFromString("1500.50")))
	assert.True(t, stored.SpentAmount.IsZero())
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestBudgetRepoImpl_FindById_NotFound(t *testing.T) {
	// given
	ctx := context.Background()
	repo := NewBudgetRepo(db)

	// when
	_, err := repo.FindById(ctx, 99999)

	// then
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBudgetRepoImpl_FindByOwnerAndPeriod(t *testing.T) {
	// given
	ctx := context.Background()
	repo := NewBudgetRepo(db)
	created := storeTestBudget(t, repo, memberId, "800", 2, 2026)

	// when
	found, err := repo.FindByOwnerAndPeriod(ctx, memberId, 2, 2026)

	// then
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	// and another period stays empty
	_, err = repo.FindByOwnerAndPeriod(ctx, memberId, 2, 2030)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBudgetRepoImpl_Update(t *testing.T) {
	// given
	ctx := context.Background()
	repo := NewBudgetRepo(db)
	created := storeTestBudget(t, repo, adminId, "1000", 3, 2026)

	// when ownership and amount move in one statement
	created.OwnerID = memberId
	created.AllocatedAmount = decimal.RequireFromString("1250.25")
	err := repo.Update(ctx, created)

	// then
	require.NoError(t, err)
	updated, err := repo.FindById(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, memberId, updated.OwnerID)
	assert.Equal(t, test_utils.TestMember.DisplayName, updated.OwnerName)
	assert.True(t, updated.AllocatedAmount.Equal(decimal.RequireFromString("1250.25")))

	// and the previous owner no longer holds it
	_, err = repo.FindByOwnerAndPeriod(ctx, adminId, 3, 2026)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBudgetRepoImpl_Update_NotFound(t *testing.T) {
	// given
	ctx := context.Background()
	repo := NewBudgetRepo(db)

	// when
	err := repo.Update(ctx, Budget{ID: 99999, AllocatedAmount: decimal.NewFromInt(1), Month: 1, Year: 2026})

	// then
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBudgetRepoImpl_Search(t *testing.T) {
	// given
	ctx := context.Background()
	repo := NewBudgetRepo(db)
	storeTestBudget(t, repo, adminId, "300", 5, 2027)
	storeTestBudget(t, repo, memberId, "700.75", 5, 2027)

	// when
	result, err := repo.Search(ctx, SearchFilters{Month: 5, Year: 2027}, 1, 10)

	// then the page carries single-pass totals
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Len(t, result.Items, 2)
	assert.True(t, result.TotalAllocated.Equal(decimal.RequireFromString("1000.75")))
	assert.True(t, result.TotalSpent.IsZero())

	// and a name filter narrows it down
	result, err = repo.Search(ctx, SearchFilters{UserName: "member", Month: 5, Year: 2027}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, memberId, result.Items[0].OwnerID)
}
