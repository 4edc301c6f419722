package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/geospawn/internal/model"
)

// SpeciesRepository caches PokéAPI payloads keyed by species id.
type SpeciesRepository struct {
	pool *pgxpool.Pool
}

// NewSpeciesRepository creates a new species repository
func NewSpeciesRepository(pool *pgxpool.Pool) *SpeciesRepository {
	return &SpeciesRepository{pool: pool}
}

// Get loads a cached payload. Returns nil, nil if the species is not cached.
func (r *SpeciesRepository) Get(ctx context.Context, id int) (*model.Pokemon, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM species WHERE species_id = $1`, id,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading species %d: %w", id, err)
	}

	var p model.Pokemon
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decoding species %d: %w", id, err)
	}
	return &p, nil
}

// Put stores or replaces a payload.
func (r *SpeciesRepository) Put(ctx context.Context, p *model.Pokemon) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding species %d: %w", p.ID, err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO species (species_id, name, payload, fetched_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (species_id) DO UPDATE
		SET name = EXCLUDED.name, payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at
	`, p.ID, p.Name, payload)
	if err != nil {
		return fmt.Errorf("storing species %d: %w", p.ID, err)
	}
	return nil
}
