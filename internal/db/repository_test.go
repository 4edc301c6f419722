package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/geospawn/internal/model"
	"github.com/udisondev/geospawn/internal/testutil"
)

func TestRepositories(t *testing.T) {
	database := setupTestDB(t)

	t.Run("species round trip", func(t *testing.T) {
		repo := NewSpeciesRepository(database.Pool())
		ctx := context.Background()

		missing, err := repo.Get(ctx, 25)
		require.NoError(t, err)
		assert.Nil(t, missing)

		require.NoError(t, repo.Put(ctx, testutil.Pikachu()))

		p, err := repo.Get(ctx, 25)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "pikachu", p.Name)
		assert.Equal(t, "electric", p.PrimaryType())
		assert.Equal(t, "X", p.ImageRef())

		// Upsert replaces the payload
		renamed := testutil.Pikachu()
		renamed.Name = "pikachu-cap"
		require.NoError(t, repo.Put(ctx, renamed))
		p, err = repo.Get(ctx, 25)
		require.NoError(t, err)
		assert.Equal(t, "pikachu-cap", p.Name)
	})

	t.Run("catches by device", func(t *testing.T) {
		repo := NewCatchRepository(database.Pool())
		ctx := context.Background()
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		for i, device := range []string{"dev-a", "dev-b", "dev-a"} {
			require.NoError(t, repo.Save(ctx, model.Catch{
				ID:         uuid.NewString(),
				DeviceHash: device,
				SpawnKey:   uuid.NewString(),
				SpeciesID:  i + 1,
				Name:       "creature",
				Category:   "normal",
				Latitude:   10,
				Longitude:  20,
				ImageRef:   model.FallbackSprite(i + 1),
				CaughtAt:   base.Add(time.Duration(i) * time.Minute),
			}))
		}

		catches, err := repo.ListByDevice(ctx, "dev-a", 0)
		require.NoError(t, err)
		require.Len(t, catches, 2)
		assert.Equal(t, 3, catches[0].SpeciesID, "newest first")
		assert.Equal(t, 1, catches[1].SpeciesID)
		assert.True(t, catches[0].CaughtAt.Equal(base.Add(2*time.Minute)))

		limited, err := repo.ListByDevice(ctx, "dev-a", 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("spawn key caught once", func(t *testing.T) {
		repo := NewCatchRepository(database.Pool())
		ctx := context.Background()
		c := model.Catch{
			ID:         uuid.NewString(),
			DeviceHash: "dev-c",
			SpawnKey:   "spawn-1",
			SpeciesID:  7,
			Name:       "squirtle",
			Category:   "water",
			ImageRef:   model.FallbackSprite(7),
			CaughtAt:   time.Now(),
		}
		require.NoError(t, repo.Save(ctx, c))

		c.ID = uuid.NewString()
		assert.Error(t, repo.Save(ctx, c))
	})

	t.Run("invalid catch id", func(t *testing.T) {
		repo := NewCatchRepository(database.Pool())
		assert.Error(t, repo.Save(context.Background(), model.Catch{ID: "not-a-uuid"}))
	})
}
