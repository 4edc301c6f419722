package pokeapi

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/udisondev/geospawn/internal/model"
)

// Fetcher fetches a creature payload by id.
type Fetcher interface {
	GetPokemon(ctx context.Context, id int) (*model.Pokemon, error)
}

// SpeciesStore persists creature payloads.
// Get returns nil, nil when the id is not stored.
type SpeciesStore interface {
	Get(ctx context.Context, id int) (*model.Pokemon, error)
	Put(ctx context.Context, p *model.Pokemon) error
}

// CachedLookup serves payloads from a SpeciesStore and falls back to the
// remote. Concurrent misses for the same id share one remote request.
type CachedLookup struct {
	remote Fetcher
	store  SpeciesStore
	group  singleflight.Group
}

// NewCachedLookup creates a caching lookup.
func NewCachedLookup(remote Fetcher, store SpeciesStore) *CachedLookup {
	return &CachedLookup{remote: remote, store: store}
}

// GetPokemon returns the stored payload or fetches and stores it.
// Store failures are logged and never fail the lookup.
func (c *CachedLookup) GetPokemon(ctx context.Context, id int) (*model.Pokemon, error) {
	p, err := c.store.Get(ctx, id)
	if err != nil {
		slog.Warn("species cache read failed", "id", id, "error", err)
	} else if p != nil {
		return p, nil
	}

	v, err, _ := c.group.Do(strconv.Itoa(id), func() (any, error) {
		// Shared by every waiter: one caller's cancellation must not fail the others.
		fctx := context.WithoutCancel(ctx)

		p, err := c.remote.GetPokemon(fctx, id)
		if err != nil {
			return nil, err
		}
		if err := c.store.Put(fctx, p); err != nil {
			slog.Warn("species cache write failed", "id", id, "error", err)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Pokemon), nil
}

// MemoryStore is an in-process SpeciesStore.
type MemoryStore struct {
	species sync.Map // map[int]*model.Pokemon
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context, id int) (*model.Pokemon, error) {
	v, ok := s.species.Load(id)
	if !ok {
		return nil, nil
	}
	return v.(*model.Pokemon), nil
}

func (s *MemoryStore) Put(_ context.Context, p *model.Pokemon) error {
	s.species.Store(p.ID, p)
	return nil
}
