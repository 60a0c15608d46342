package storetest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/phrazzld/fractal-api/internal/fractal"
	"github.com/phrazzld/fractal-api/internal/store"
	"github.com/phrazzld/fractal-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) task.StatusStore

// Tree returns a tree spec that differs between calls with different iterations.
func Tree(iterations int) fractal.Tree {
	return fractal.Tree{
		Dimensions: fractal.Dimensions{
			Width: 500, Height: 500, TotalIterations: iterations,
			PaddingHorizontal: 40, PaddingVertical: 40,
		},
		Angle:         math.Pi / 3,
		ScalingFactor: 0.77,
	}
}

// Circle returns a circle spec.
func Circle(satellites int) fractal.Circle {
	return fractal.Circle{
		Dimensions: fractal.Dimensions{
			Width: 700, Height: 500, TotalIterations: 4,
			PaddingHorizontal: 40, PaddingVertical: 40,
		},
		SatelliteCount: satellites,
		ScalingFactor:  0.5,
		ZoomFactor:     0.2,
	}
}

var baseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// RunStatusStoreTests exercises the task.StatusStore contract against the
// stores created by newStore.
func RunStatusStoreTests(t *testing.T, newStore Factory) {
	t.Run("save and find by id", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		record := task.NewRecord(1, Tree(5), "trees/a.png?x=1", baseTime, time.Hour)
		require.NoError(t, s.Save(ctx, record))

		found, err := s.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, record.ID, found.ID)
		assert.True(t, fractal.Equal(record.Spec, found.Spec))
		assert.Equal(t, record.ImagePath, found.ImagePath)
		assert.Equal(t, record.StatusMessage, found.StatusMessage)
		assert.Equal(t, task.TaskStatusPending, found.Status)
		assert.False(t, found.Complete)
		assert.True(t, record.CreatedAt.Equal(found.CreatedAt))
		assert.True(t, record.Expiration.Equal(found.Expiration))

		_, err = s.FindByID(ctx, 2)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("save replaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		record := task.NewRecord(1, Tree(5), "a.png", baseTime, time.Hour)
		require.NoError(t, s.Save(ctx, record))

		record.Status = task.TaskStatusCompleted
		record.Complete = true
		record.StatusMessage = "Generated at /tmp/a.png"
		record.DurationMs = 42
		require.NoError(t, s.Save(ctx, record))

		found, err := s.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, task.TaskStatusCompleted, found.Status)
		assert.True(t, found.Complete)
		assert.Equal(t, "Generated at /tmp/a.png", found.StatusMessage)
		assert.Equal(t, int64(42), found.DurationMs)

		again, err := s.FindByEqualSpec(ctx, Tree(5))
		require.NoError(t, err)
		assert.Equal(t, int64(1), again.ID, "replacing a record keeps a single index entry")
	})

	t.Run("returned records are copies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		record := task.NewRecord(1, Tree(5), "a.png", baseTime, time.Hour)
		require.NoError(t, s.Save(ctx, record))
		record.StatusMessage = "mutated after save"

		found, err := s.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated after save", found.StatusMessage)
	})

	t.Run("find by equal spec", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, task.NewRecord(3, Tree(5), "b.png", baseTime, time.Hour)))
		require.NoError(t, s.Save(ctx, task.NewRecord(2, Tree(5), "a.png", baseTime, time.Hour)))
		require.NoError(t, s.Save(ctx, task.NewRecord(4, Circle(4), "c.png", baseTime, time.Hour)))

		found, err := s.FindByEqualSpec(ctx, Tree(5))
		require.NoError(t, err)
		assert.Equal(t, int64(2), found.ID, "lowest id wins")

		found, err = s.FindByEqualSpec(ctx, &fractal.Circle{
			Dimensions:     Circle(4).Dimensions,
			SatelliteCount: 4,
			ScalingFactor:  0.5,
			ZoomFactor:     0.2,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), found.ID)

		_, err = s.FindByEqualSpec(ctx, Tree(6))
		assert.ErrorIs(t, err, store.ErrNotFound)

		// Same parameters, different kind
		_, err = s.FindByEqualSpec(ctx, fractal.Flower{Dimensions: Tree(5).Dimensions})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("max id", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		maxID, err := s.MaxID(ctx)
		require.NoError(t, err)
		assert.Zero(t, maxID)

		require.NoError(t, s.Save(ctx, task.NewRecord(17, Tree(1), "a.png", baseTime, time.Hour)))
		require.NoError(t, s.Save(ctx, task.NewRecord(5, Tree(2), "b.png", baseTime, time.Hour)))

		maxID, err = s.MaxID(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(17), maxID)
	})

	t.Run("find incomplete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		done := task.NewRecord(1, Tree(1), "a.png", baseTime, time.Hour)
		done.Complete = true
		done.Status = task.TaskStatusCompleted
		require.NoError(t, s.Save(ctx, done))
		require.NoError(t, s.Save(ctx, task.NewRecord(3, Tree(3), "c.png", baseTime, time.Hour)))
		require.NoError(t, s.Save(ctx, task.NewRecord(2, Tree(2), "b.png", baseTime, time.Hour)))

		incomplete, err := s.FindIncomplete(ctx)
		require.NoError(t, err)
		require.Len(t, incomplete, 2)
		assert.Equal(t, int64(2), incomplete[0].ID)
		assert.Equal(t, int64(3), incomplete[1].ID)
	})

	t.Run("delete expired", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		expired := task.NewRecord(1, Tree(1), "a.png", baseTime, time.Minute)
		expired.Complete = true
		boundary := task.NewRecord(2, Tree(2), "b.png", baseTime, time.Hour)
		boundary.Complete = true
		fresh := task.NewRecord(3, Tree(3), "c.png", baseTime, 2*time.Hour)
		fresh.Complete = true
		running := task.NewRecord(4, Tree(4), "d.png", baseTime, time.Minute)
		for _, r := range []*task.Record{expired, boundary, fresh, running} {
			require.NoError(t, s.Save(ctx, r))
		}

		removed, err := s.DeleteExpired(ctx, baseTime.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, removed, 2)
		assert.Equal(t, int64(1), removed[0].ID)
		assert.Equal(t, int64(2), removed[1].ID)
		assert.Equal(t, "a.png", removed[0].ImagePath)

		_, err = s.FindByID(ctx, 1)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.FindByEqualSpec(ctx, Tree(2))
		assert.ErrorIs(t, err, store.ErrNotFound, "deleted records leave the spec index")

		_, err = s.FindByID(ctx, 3)
		assert.NoError(t, err)
		_, err = s.FindByID(ctx, 4)
		assert.NoError(t, err, "incomplete records are kept")

		removed, err = s.DeleteExpired(ctx, baseTime.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, removed)
	})
	t.Run("image file in use", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		old := task.NewRecord(1, Tree(1), "shared.png", baseTime, time.Minute)
		old.Complete = true
		require.NoError(t, s.Save(ctx, old))
		require.NoError(t, s.Save(ctx, task.NewRecord(2, Tree(2), "gallery//b.png?v=2", baseTime, time.Hour)))

		for file, want := range map[string]bool{
			"shared.png":    true,
			"gallery/b.png": true,
			"b.png":         false,
		} {
			inUse, err := s.ImageFileInUse(ctx, file)
			require.NoError(t, err)
			assert.Equal(t, want, inUse, file)
		}

		// Moving a record to another path releases its old file
		moved := task.NewRecord(2, Tree(2), "c.png", baseTime, time.Hour)
		require.NoError(t, s.Save(ctx, moved))
		inUse, err := s.ImageFileInUse(ctx, "gallery/b.png")
		require.NoError(t, err)
		assert.False(t, inUse)

		_, err = s.DeleteExpired(ctx, baseTime.Add(time.Hour))
		require.NoError(t, err)
		inUse, err = s.ImageFileInUse(ctx, "shared.png")
		require.NoError(t, err)
		assert.False(t, inUse, "deleted records release their file")
	})
}
