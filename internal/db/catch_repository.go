package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/geospawn/internal/model"
)

// CatchRepository persists caught creatures.
type CatchRepository struct {
	pool *pgxpool.Pool
}

// NewCatchRepository creates a new catch repository
func NewCatchRepository(pool *pgxpool.Pool) *CatchRepository {
	return &CatchRepository{pool: pool}
}

// Save inserts a catch. A spawn key can be caught only once.
func (r *CatchRepository) Save(ctx context.Context, c model.Catch) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return fmt.Errorf("parsing catch id %q: %w", c.ID, err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO catches (catch_id, device_hash, spawn_key, species_id, name, category,
		                     latitude, longitude, image_ref, caught_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		id, c.DeviceHash, c.SpawnKey, c.SpeciesID, c.Name, c.Category,
		c.Latitude, c.Longitude, c.ImageRef, c.CaughtAt,
	)
	if err != nil {
		return fmt.Errorf("saving catch %s for spawn %s: %w", c.ID, c.SpawnKey, err)
	}
	return nil
}

// ListByDevice returns a device's catches, newest first. limit <= 0 means no limit.
func (r *CatchRepository) ListByDevice(ctx context.Context, deviceHash string, limit int) ([]model.Catch, error) {
	query := `
		SELECT catch_id, device_hash, spawn_key, species_id, name, category,
		       latitude, longitude, image_ref, caught_at
		FROM catches
		WHERE device_hash = $1
		ORDER BY caught_at DESC
	`
	args := []any{deviceHash}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing catches: %w", err)
	}
	defer rows.Close()

	catches := make([]model.Catch, 0, 16)
	for rows.Next() {
		var (
			c  model.Catch
			id uuid.UUID
		)
		if err := rows.Scan(&id, &c.DeviceHash, &c.SpawnKey, &c.SpeciesID, &c.Name, &c.Category,
			&c.Latitude, &c.Longitude, &c.ImageRef, &c.CaughtAt); err != nil {
			return nil, fmt.Errorf("scanning catch row: %w", err)
		}
		c.ID = id.String()
		catches = append(catches, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating catch rows: %w", err)
	}

	return catches, nil
}
