package postgres_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/platform/postgres"
	"github.com/atelierhq/atelier-api/internal/store"
	"github.com/atelierhq/atelier-api/internal/testdb"
)

func TestGenerationCreateMultipleRoundTrip(t *testing.T) {
	db := testdb.Get(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		generations := postgres.NewPostgresGenerationStore(tx, discardLogger())

		batch, batchTasks := seedBatch(t, tx, 3)

		wantTasks := map[uuid.UUID]bool{}
		for _, task := range batchTasks {
			wantTasks[task.ID] = true
		}

		listed, err := generations.ListByBatch(ctx, batch.ID)
		require.NoError(t, err)
		require.Len(t, listed, 3)
		for _, gen := range listed {
			assert.Equal(t, batch.ID, gen.BatchID)
			assert.True(t, wantTasks[gen.AsyncTaskID], "unexpected task reference")
			delete(wantTasks, gen.AsyncTaskID)
			require.NotNil(t, gen.Seed)
			assert.Nil(t, gen.Asset)
		}
	})
}

func TestGenerationTaskReferenceIsUnique(t *testing.T) {
	db := testdb.Get(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		generations := postgres.NewPostgresGenerationStore(tx, discardLogger())

		batch, batchTasks := seedBatch(t, tx, 1)

		dup, err := domain.NewGeneration(batch.ID, batchTasks[0].ID, nil)
		require.NoError(t, err)

		err = generations.CreateMultiple(ctx, []*domain.Generation{dup})
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})
}

func TestGenerationAttachAsset(t *testing.T) {
	db := testdb.Get(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		generations := postgres.NewPostgresGenerationStore(tx, discardLogger())

		_, batchTasks := seedBatch(t, tx, 1)

		gen, err := generations.GetByTaskID(ctx, batchTasks[0].ID)
		require.NoError(t, err)

		asset := domain.GeneratedAsset{Key: "generations/out.png", Width: 1024, Height: 768}
		require.NoError(t, generations.AttachAsset(ctx, gen.ID, asset))

		got, err := generations.GetByTaskID(ctx, batchTasks[0].ID)
		require.NoError(t, err)
		require.NotNil(t, got.Asset)
		assert.Equal(t, asset, *got.Asset)
	})
}
