package user

import (
	"context"
	"testing"

	"github.com/expentra/expentra/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRepoStub = NewStubUserRepository()

var service Service

func setup(t *testing.T) func() {
	service = NewUserService(userRepoStub)
	return func() {
		t.Log("Teardown after test")
		userRepoStub.Cleanup()
	}
}

func TestUserServiceImpl_CreateUser(t *testing.T) {
	t.Run("should assign a uid when none is given", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		created, err := service.CreateUser(context.Background(), User{Username: "alice", DisplayName: "Alice"})

		// then
		require.NoError(t, err)
		assert.NotZero(t, created.Id)
		assert.NotEmpty(t, created.Uid)
	})
}

func TestUserServiceImpl_GetCurrentUser(t *testing.T) {
	t.Run("should resolve the acting user from the context", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		created, err := service.CreateUser(context.Background(), User{Username: "alice", DisplayName: "Alice"})
		require.NoError(t, err)
		ctx := WithUser(context.Background(), created)

		// when
		current, err := service.GetCurrentUser(ctx)

		// then
		require.NoError(t, err)
		assert.Equal(t, created.Id, current.Id)
	})

	t.Run("should return error when context has no user", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.GetCurrentUser(context.Background())

		// then
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get current user")
	})
}

func TestUserServiceImpl_ListBudgetIds(t *testing.T) {
	t.Run("should list budgets attached to the user", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		created, err := service.CreateUser(context.Background(), User{Username: "alice", DisplayName: "Alice"})
		require.NoError(t, err)
		userRepoStub.AttachBudget(created.Id, 10)
		userRepoStub.AttachBudget(created.Id, 4)

		// when
		ids, err := service.ListBudgetIds(context.Background(), created.Id)

		// then
		require.NoError(t, err)
		assert.Equal(t, []int{4, 10}, ids)
	})

	t.Run("should drop a budget moved to another owner", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		from, err := service.CreateUser(context.Background(), User{Username: "alice", DisplayName: "Alice"})
		require.NoError(t, err)
		to, err := service.CreateUser(context.Background(), User{Username: "bob", DisplayName: "Bob"})
		require.NoError(t, err)
		userRepoStub.AttachBudget(from.Id, 7)
		userRepoStub.AttachBudget(from.Id, 9)

		// when: budget 7 is reassigned
		userRepoStub.DetachBudget(from.Id, 7)
		userRepoStub.AttachBudget(to.Id, 7)

		// then
		fromIds, err := service.ListBudgetIds(context.Background(), from.Id)
		require.NoError(t, err)
		assert.Equal(t, []int{9}, fromIds)
		toIds, err := service.ListBudgetIds(context.Background(), to.Id)
		require.NoError(t, err)
		assert.Equal(t, []int{7}, toIds)
	})

	t.Run("should return not found for an unknown user", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.ListBudgetIds(context.Background(), 999)

		// then
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestRequireRole(t *testing.T) {
	t.Run("should pass for a matching role", func(t *testing.T) {
		// given
		ctx := WithUser(context.Background(), User{Id: 1, Role: RoleSuperadmin})

		// when
		actor, err := RequireRole(ctx, RoleSuperadmin)

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, actor.Id)
	})

	t.Run("should reject a user with a lesser role", func(t *testing.T) {
		// given
		ctx := WithUser(context.Background(), User{Id: 2, Role: RoleUser})

		// when
		_, err := RequireRole(ctx, RoleSuperadmin)

		// then
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("should reject when context has no user", func(t *testing.T) {
		// when
		_, err := RequireRole(context.Background(), RoleSuperadmin)

		// then
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}
