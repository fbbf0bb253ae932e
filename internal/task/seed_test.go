package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDistinctSeeds(t *testing.T) {
	t.Run("seeds are pairwise distinct and non-negative", func(t *testing.T) {
		seeds, err := NewDistinctSeeds(16)
		require.NoError(t, err)
		require.Len(t, seeds, 16)

		seen := make(map[int64]struct{}, len(seeds))
		for _, s := range seeds {
			assert.GreaterOrEqual(t, s, int64(0))
			_, dup := seen[s]
			assert.False(t, dup, "duplicate seed %d", s)
			seen[s] = struct{}{}
		}
	})

	t.Run("single seed", func(t *testing.T) {
		seeds, err := NewDistinctSeeds(1)
		require.NoError(t, err)
		assert.Len(t, seeds, 1)
	})

	t.Run("non-positive count rejected", func(t *testing.T) {
		_, err := NewDistinctSeeds(0)
		assert.Error(t, err)

		_, err = NewDistinctSeeds(-3)
		assert.Error(t, err)
	})
}
