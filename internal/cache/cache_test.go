package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetDelete(t *testing.T) {
	t.Run("should return a stored value until it is deleted", func(t *testing.T) {
		// given
		store := NewStore(time.Minute, time.Minute)
		store.Set(BudgetKey(1), "value")

		// when
		value, ok := store.Get(BudgetKey(1))

		// then
		require.True(t, ok)
		assert.Equal(t, "value", value)

		// and after deletion
		store.Delete(BudgetKey(1))
		_, ok = store.Get(BudgetKey(1))
		assert.False(t, ok)
	})

	t.Run("should expire entries after the TTL", func(t *testing.T) {
		// given
		store := NewStore(20*time.Millisecond, time.Minute)
		store.Set(ExpenseKey(1), "value")

		// when
		time.Sleep(50 * time.Millisecond)
		_, ok := store.Get(ExpenseKey(1))

		// then
		assert.False(t, ok)
	})
}

func TestStore_Generations(t *testing.T) {
	t.Run("should make old listing keys unreachable after invalidation", func(t *testing.T) {
		// given
		store := NewStore(time.Minute, time.Minute)
		key := BudgetListKey(store.Generation(KindBudgets), 1, 10)
		store.Set(key, "stale listing")

		// when
		store.Invalidate(KindBudgets)
		freshKey := BudgetListKey(store.Generation(KindBudgets), 1, 10)

		// then
		assert.NotEqual(t, key, freshKey)
		_, ok := store.Get(freshKey)
		assert.False(t, ok)
	})

	t.Run("should keep generations independent per entity kind", func(t *testing.T) {
		// given
		store := NewStore(time.Minute, time.Minute)
		before := store.Generation(KindExpenses)

		// when
		store.Invalidate(KindBudgets)

		// then
		assert.Equal(t, before, store.Generation(KindExpenses))
		assert.Equal(t, uint64(1), store.Generation(KindBudgets))
	})

	t.Run("should not invalidate exact single-record keys", func(t *testing.T) {
		// given
		store := NewStore(time.Minute, time.Minute)
		store.Set(BudgetKey(7), "budget")

		// when
		store.Invalidate(KindBudgets)

		// then
		value, ok := store.Get(BudgetKey(7))
		require.True(t, ok)
		assert.Equal(t, "budget", value)
	})
}

func TestNoop(t *testing.T) {
	t.Run("should always miss", func(t *testing.T) {
		// given
		cache := Noop{}
		cache.Set("key", "value")

		// when
		_, ok := cache.Get("key")

		// then
		assert.False(t, ok)
		assert.Equal(t, uint64(0), cache.Generation(KindBudgets))
	})
}
