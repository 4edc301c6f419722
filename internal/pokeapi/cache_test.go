package pokeapi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/geospawn/internal/model"
	"github.com/udisondev/geospawn/internal/testutil"
)

type failingStore struct{}

func (failingStore) Get(context.Context, int) (*model.Pokemon, error) {
	return nil, errors.New("store down")
}

func (failingStore) Put(context.Context, *model.Pokemon) error {
	return errors.New("store down")
}

func TestCachedLookup_StoresAndServes(t *testing.T) {
	remote := testutil.NewStubLookup(testutil.Pikachu())
	store := NewMemoryStore()
	c := NewCachedLookup(remote, store)

	p, err := c.GetPokemon(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, "pikachu", p.Name)

	stored, err := store.Get(context.Background(), 25)
	require.NoError(t, err)
	require.NotNil(t, stored)

	_, err = c.GetPokemon(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, 1, remote.CallCount(), "second lookup served from store")
}

func TestCachedLookup_RemoteError(t *testing.T) {
	remote := &testutil.StubLookup{
		Fn: func(context.Context, int) (*model.Pokemon, error) {
			return nil, &StatusError{Code: 500, Body: "oops"}
		},
	}
	store := NewMemoryStore()
	c := NewCachedLookup(remote, store)

	_, err := c.GetPokemon(context.Background(), 4)
	var se *StatusError
	require.ErrorAs(t, err, &se)

	stored, _ := store.Get(context.Background(), 4)
	assert.Nil(t, stored, "failures are not cached")
}

func TestCachedLookup_StoreFailureFallsThrough(t *testing.T) {
	remote := testutil.NewStubLookup(testutil.Pikachu())
	c := NewCachedLookup(remote, failingStore{})

	for range 2 {
		p, err := c.GetPokemon(context.Background(), 25)
		require.NoError(t, err)
		assert.Equal(t, 25, p.ID)
	}
	assert.Equal(t, 2, remote.CallCount())
}

func TestCachedLookup_CanceledCallerStillFetches(t *testing.T) {
	remote := &testutil.StubLookup{
		Fn: func(ctx context.Context, id int) (*model.Pokemon, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return testutil.Pokemon(id, "bulbasaur", "grass"), nil
		},
	}
	c := NewCachedLookup(remote, NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := c.GetPokemon(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "bulbasaur", p.Name)
}
