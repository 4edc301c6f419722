package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/geospawn/internal/clock"
	"github.com/udisondev/geospawn/internal/model"
	"github.com/udisondev/geospawn/internal/spawn"
	"github.com/udisondev/geospawn/internal/testutil"
)

// failingCatches — CatchStore, который всегда падает на Save.
type failingCatches struct{ *MemoryCatches }

func (failingCatches) Save(context.Context, model.Catch) error {
	return errors.New("connection reset")
}

func testConfig() Config {
	return Config{
		Spawn:        spawn.DefaultConfig(),
		MinDistance:  1,
		Fallback:     model.NewLocationFix(37.78825, -122.4324),
		IdleTimeout:  5 * time.Minute,
		ReapInterval: 30 * time.Second,
		CatchRadius:  1000,
	}
}

func newTestManager(t *testing.T, cfg Config, store CatchStore) (*Manager, *clock.Manual) {
	t.Helper()

	clk := clock.NewManual(testutil.Epoch)
	m := NewManager(cfg, testutil.NewStubLookup(testutil.Pikachu()), store,
		WithClock(clk),
		WithSchedulerOptions(spawn.WithRand(rand.New(rand.NewPCG(3, 4)))),
	)
	t.Cleanup(m.CloseAll)
	return m, clk
}

// spawnOne lets the warm-up fire and returns the spawned marker.
func spawnOne(t *testing.T, m *Manager, clk *clock.Manual, deviceID string) spawn.Marker {
	t.Helper()

	clk.Advance(time.Second)
	s, err := m.get(deviceID)
	require.NoError(t, err)
	s.scheduler.Wait()

	snap, err := m.Snapshot(deviceID)
	require.NoError(t, err)
	require.Len(t, snap.Markers, 1)
	return snap.Markers[0]
}

func TestHashDevice(t *testing.T) {
	a := HashDevice("device-a")
	assert.Len(t, a, 32)
	assert.Equal(t, a, HashDevice("device-a"))
	assert.NotEqual(t, a, HashDevice("device-b"))
}

func TestManager_SessionCreatedOnFirstFix(t *testing.T) {
	m, _ := newTestManager(t, testConfig(), NewMemoryCatches())

	_, err := m.Snapshot("phone")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, m.ReportLocation("phone", model.NewLocationFix(10, 20)))
	require.NoError(t, m.ReportLocation("tablet", model.NewLocationFix(11, 21)))
	assert.Equal(t, 2, m.Count())

	snap, err := m.Snapshot("phone")
	require.NoError(t, err)
	require.NotNil(t, snap.Location)
	assert.Equal(t, model.NewLocationFix(10, 20), *snap.Location)
	assert.Empty(t, snap.Markers)
}

func TestManager_InvalidLocation(t *testing.T) {
	m, _ := newTestManager(t, testConfig(), NewMemoryCatches())

	err := m.ReportLocation("phone", model.NewLocationFix(95, 0))
	assert.ErrorIs(t, err, ErrInvalidLocation)
	assert.Zero(t, m.Count())
}

func TestManager_DistanceFilter(t *testing.T) {
	m, _ := newTestManager(t, testConfig(), NewMemoryCatches())

	require.NoError(t, m.ReportLocation("phone", model.NewLocationFix(10, 20)))
	require.NoError(t, m.ReportLocation("phone", model.NewLocationFix(10.000001, 20)))

	snap, err := m.Snapshot("phone")
	require.NoError(t, err)
	assert.Equal(t, model.NewLocationFix(10, 20), *snap.Location, "sub-meter move dropped")

	require.NoError(t, m.ReportLocation("phone", model.NewLocationFix(10.001, 20)))
	snap, _ = m.Snapshot("phone")
	assert.Equal(t, model.NewLocationFix(10.001, 20), *snap.Location)
}

func TestManager_ReportUnavailableUsesFallback(t *testing.T) {
	m, clk := newTestManager(t, testConfig(), NewMemoryCatches())

	require.NoError(t, m.ReportUnavailable("phone"))

	marker := spawnOne(t, m, clk, "phone")
	assert.InDelta(t, 37.78825, marker.Latitude, 0.005)
	assert.InDelta(t, -122.4324, marker.Longitude, 0.005)
}

func TestManager_Catch(t *testing.T) {
	store := NewMemoryCatches()
	m, clk := newTestManager(t, testConfig(), store)

	require.NoError(t, m.ReportLocation("phone", model.NewLocationFix(10, 20)))
	marker := spawnOne(t, m, clk, "phone")

	c, err := m.Catch(context.Background(), "phone", marker.Key)
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, marker.Key, c.SpawnKey)
	assert.Equal(t, 25, c.SpeciesID)
	assert.Equal(t, "pikachu", c.Name)
	assert.Equal(t, "electric", c.Category)
	assert.Equal(t, HashDevice("phone"), c.DeviceHash)
	assert.True(t, c.CaughtAt.Equal(clk.Now()))

	snap, _ := m.Snapshot("phone")
	assert.Empty(t, snap.Markers, "caught entity leaves the live set")

	catches, err := m.Catches(context.Background(), "phone", 0)
	require.NoError(t, err)
	require.Len(t, catches, 1)
	assert.Equal(t, c.ID, catches[0].ID)

	others, err := m.Catches(context.Background(), "tablet", 0)
	require.NoError(t, err)
	assert.Empty(t, others)

	_, err = m.Catch(context.Background(), "phone", marker.Key)
	assert.ErrorIs(t, err, spawn.ErrUnknownSpawn, "cannot catch twice")
}

func TestManager_CatchOutOfRange(t *testing.T) {
	cfg := testConfig()
	cfg.CatchRadius = 1
	m, clk := newTestManager(t, cfg, NewMemoryCatches())

	require.NoError(t, m.ReportLocation("phone", model.NewLocationFix(10, 20)))
	marker := spawnOne(t, m, clk, "phone")

	_, err := m.Catch(context.Background(), "phone", marker.Key)
	assert.ErrorIs(t, err, ErrOutOfRange)

	snap, _ := m.Snapshot("phone")
	assert.Len(t, snap.Markers, 1, "entity stays when out of range")
}

func TestManager_CatchSaveFailure(t *testing.T) {
	m, clk := newTestManager(t, testConfig(), failingCatches{NewMemoryCatches()})

	require.NoError(t, m.ReportLocation("phone", model.NewLocationFix(10, 20)))
	marker := spawnOne(t, m, clk, "phone")

	_, err := m.Catch(context.Background(), "phone", marker.Key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saving catch")

	snap, _ := m.Snapshot("phone")
	assert.Empty(t, snap.Markers)
}

func TestManager_MarkImageLoaded(t *testing.T) {
	m, clk := newTestManager(t, testConfig(), NewMemoryCatches())

	assert.ErrorIs(t, m.MarkImageLoaded("phone", "k"), ErrSessionNotFound)

	require.NoError(t, m.ReportLocation("phone", model.NewLocationFix(10, 20)))
	marker := spawnOne(t, m, clk, "phone")

	require.NoError(t, m.MarkImageLoaded("phone", marker.Key))
	assert.ErrorIs(t, m.MarkImageLoaded("phone", "missing"), spawn.ErrUnknownSpawn)

	snap, _ := m.Snapshot("phone")
	assert.False(t, snap.Markers[0].TrackViewChanges)
}

func TestManager_Close(t *testing.T) {
	m, _ := newTestManager(t, testConfig(), NewMemoryCatches())

	require.NoError(t, m.ReportLocation("phone", model.NewLocationFix(10, 20)))
	s, err := m.get("phone")
	require.NoError(t, err)

	require.NoError(t, m.Close("phone"))
	assert.True(t, s.scheduler.Stopped())
	assert.Zero(t, m.Count())
	assert.ErrorIs(t, m.Close("phone"), ErrSessionNotFound)

	// A new fix opens a fresh session
	require.NoError(t, m.ReportLocation("phone", model.NewLocationFix(10, 20)))
	assert.Equal(t, 1, m.Count())
}

func TestManager_PollingKeepsSessionAlive(t *testing.T) {
	m, clk := newTestManager(t, testConfig(), NewMemoryCatches())

	require.NoError(t, m.ReportLocation("viewer", model.NewLocationFix(10, 20)))

	// No further fixes: the renderer only polls
	for range 6 * 60 {
		clk.Advance(time.Second)
		_, err := m.Snapshot("viewer")
		require.NoError(t, err)
	}

	assert.Zero(t, m.Reap(clk.Now()))
	_, err := m.Snapshot("viewer")
	assert.NoError(t, err)

	s, err := m.get("viewer")
	require.NoError(t, err)
	assert.False(t, s.scheduler.Stopped())
}

func TestManager_Reap(t *testing.T) {
	m, clk := newTestManager(t, testConfig(), NewMemoryCatches())

	require.NoError(t, m.ReportLocation("phone", model.NewLocationFix(10, 20)))
	require.NoError(t, m.ReportLocation("tablet", model.NewLocationFix(11, 21)))

	clk.Advance(4 * time.Minute)
	assert.Zero(t, m.Reap(clk.Now()))

	require.NoError(t, m.ReportLocation("tablet", model.NewLocationFix(11, 21)))
	clk.Advance(2 * time.Minute)

	assert.Equal(t, 1, m.Reap(clk.Now()), "only the silent device is reaped")
	assert.Equal(t, 1, m.Count())

	_, err := m.Snapshot("phone")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Snapshot("tablet")
	assert.NoError(t, err)
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	m, _ := newTestManager(t, testConfig(), NewMemoryCatches())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
