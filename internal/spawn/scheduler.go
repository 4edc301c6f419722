// Package spawn runs the per-device creature spawn loop: a warm-up spawn,
// a recurring spawn check and a bounded live set around the last known fix.
package spawn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/geospawn/internal/clock"
	"github.com/udisondev/geospawn/internal/model"
)

const (
	DefaultWarmUp        = 1 * time.Second
	DefaultInterval      = 3 * time.Second
	DefaultMaxPopulation = 20
	DefaultSpread        = 0.01 // degrees, full width of the placement window
	DefaultCatalogMin    = 1
	DefaultCatalogMax    = 151
)

var (
	ErrUnknownSpawn = errors.New("unknown spawn")
	ErrStopped      = errors.New("scheduler stopped")
)

// Lookup fetches creature data by remote identity.
type Lookup interface {
	GetPokemon(ctx context.Context, id int) (*model.Pokemon, error)
}

// Config holds scheduler timing and placement parameters.
type Config struct {
	WarmUp        time.Duration
	Interval      time.Duration
	MaxPopulation int
	Spread        float64
	CatalogMin    int
	CatalogMax    int
}

// DefaultConfig returns the stock spawn parameters.
func DefaultConfig() Config {
	return Config{
		WarmUp:        DefaultWarmUp,
		Interval:      DefaultInterval,
		MaxPopulation: DefaultMaxPopulation,
		Spread:        DefaultSpread,
		CatalogMin:    DefaultCatalogMin,
		CatalogMax:    DefaultCatalogMax,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WarmUp <= 0 {
		c.WarmUp = def.WarmUp
	}
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.MaxPopulation <= 0 {
		c.MaxPopulation = def.MaxPopulation
	}
	if c.Spread <= 0 {
		c.Spread = def.Spread
	}
	if c.CatalogMin <= 0 || c.CatalogMax < c.CatalogMin {
		c.CatalogMin = def.CatalogMin
		c.CatalogMax = def.CatalogMax
	}
	return c
}

// Marker is the renderer's read-only view of one live entity.
type Marker struct {
	model.SpawnedEntity
	// TrackViewChanges stays true until the renderer reports the image loaded.
	TrackViewChanges bool `json:"track_view_changes"`
}

// Snapshot is a point-in-time copy of scheduler state.
type Snapshot struct {
	Markers  []Marker           `json:"markers"`
	Fetching bool               `json:"fetching"`
	Location *model.LocationFix `json:"location,omitempty"`
}

type liveEntity struct {
	entity      model.SpawnedEntity
	imageLoaded bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the timer source (default: clock.Real()).
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithRand sets the random source for identities and placement.
func WithRand(r *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = r }
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// Scheduler keeps a bounded, periodically growing set of creatures around
// the last known location. At most one lookup is in flight at any time.
type Scheduler struct {
	cfg    Config
	lookup Lookup
	clock  clock.Clock
	log    *slog.Logger

	ctx    context.Context // canceled on teardown
	cancel context.CancelFunc
	wg     sync.WaitGroup // outstanding lookups

	mu       sync.Mutex
	rng      *rand.Rand
	live     []*liveEntity // insertion order
	inFlight bool
	location *model.LocationFix
	started  bool
	stopped  bool
	warmUp   clock.Timer
	ticker   clock.Timer
}

// NewScheduler creates a scheduler. Timers start with the first location fix.
func NewScheduler(cfg Config, lookup Lookup, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:    cfg.withDefaults(),
		lookup: lookup,
		clock:  clock.Real(),
		log:    slog.Default(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s.live = make([]*liveEntity, 0, s.cfg.MaxPopulation)
	return s
}

// OnLocationAvailable records fix as the last known location. The first fix
// arms the warm-up spawn and the recurring spawn check; later fixes only
// update the location.
func (s *Scheduler) OnLocationAvailable(fix model.LocationFix) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	s.location = &fix
	if s.started {
		return
	}
	s.started = true

	s.warmUp = s.clock.AfterFunc(s.cfg.WarmUp, func() { s.AttemptSpawn() })
	s.ticker = s.clock.Every(s.cfg.Interval, func() { s.AttemptSpawn() })

	s.log.Debug("spawn scheduler started",
		"latitude", fix.Latitude,
		"longitude", fix.Longitude,
		"warmUp", s.cfg.WarmUp,
		"interval", s.cfg.Interval)
}

// AttemptSpawn issues one lookup for a random identity unless there is no
// location yet, a lookup is already in flight, or the population is full.
// Returns true if a lookup was issued.
func (s *Scheduler) AttemptSpawn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.stopped:
		return false
	case s.location == nil:
		return false
	case s.inFlight:
		return false
	case len(s.live) >= s.cfg.MaxPopulation:
		return false
	}

	// Set before the lookup goroutine starts
	s.inFlight = true
	id := s.cfg.CatalogMin + s.rng.IntN(s.cfg.CatalogMax-s.cfg.CatalogMin+1)

	s.wg.Add(1)
	go s.fetch(id)

	return true
}

func (s *Scheduler) fetch(id int) {
	defer s.wg.Done()

	p, err := s.lookup.GetPokemon(s.ctx, id)
	if err == nil && p == nil {
		err = fmt.Errorf("%w: empty response for id %d", model.ErrMalformed, id)
	}

	s.complete(id, p, err)
}

// complete applies a lookup outcome. The in-flight flag is cleared on every
// path unless the scheduler has been torn down.
func (s *Scheduler) complete(id int, p *model.Pokemon, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.log.Debug("lookup finished after teardown, discarded", "identity", id)
		return
	}

	s.inFlight = false

	if err != nil {
		s.log.Warn("spawn lookup failed", "identity", id, "error", err)
		return
	}

	// Population may have changed while the lookup was running
	if len(s.live) >= s.cfg.MaxPopulation {
		s.log.Debug("spawn discarded (population full)",
			"identity", id,
			"population", len(s.live),
			"max", s.cfg.MaxPopulation)
		return
	}

	pos := s.location.Offset(
		(s.rng.Float64()-0.5)*s.cfg.Spread,
		(s.rng.Float64()-0.5)*s.cfg.Spread,
	)
	entity := model.NewSpawnedEntity(uuid.NewString(), p, pos)
	s.live = append(s.live, &liveEntity{entity: entity})

	s.log.Info("creature spawned",
		"key", entity.Key,
		"id", entity.ID,
		"name", entity.DisplayName,
		"category", entity.PrimaryCategory,
		"latitude", entity.Latitude,
		"longitude", entity.Longitude,
		"population", len(s.live))
}

// Snapshot returns a copy of the live set, the in-flight flag and the last location.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Markers:  make([]Marker, 0, len(s.live)),
		Fetching: s.inFlight,
	}
	for _, le := range s.live {
		snap.Markers = append(snap.Markers, Marker{
			SpawnedEntity:    le.entity,
			TrackViewChanges: !le.imageLoaded,
		})
	}
	if s.location != nil {
		loc := *s.location
		snap.Location = &loc
	}
	return snap
}

// LastLocation returns the most recent fix, if any.
func (s *Scheduler) LastLocation() (model.LocationFix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.location == nil {
		return model.LocationFix{}, false
	}
	return *s.location, true
}

// Population returns the number of live entities.
func (s *Scheduler) Population() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// MarkImageLoaded records that the renderer finished loading the marker image.
// Returns false if no live entity has the key.
func (s *Scheduler) MarkImageLoaded(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, le := range s.live {
		if le.entity.Key == key {
			le.imageLoaded = true
			return true
		}
	}
	return false
}

// Despawn removes the entity with the given key. If check is non-nil it runs
// under the scheduler lock with the entity and the last known location; a
// non-nil error from check leaves the entity in place and is returned.
func (s *Scheduler) Despawn(key string, check func(e model.SpawnedEntity, from model.LocationFix) error) (model.SpawnedEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return model.SpawnedEntity{}, ErrStopped
	}

	for i, le := range s.live {
		if le.entity.Key != key {
			continue
		}

		if check != nil {
			var from model.LocationFix
			if s.location != nil {
				from = *s.location
			}
			if err := check(le.entity, from); err != nil {
				return model.SpawnedEntity{}, err
			}
		}

		s.live = append(s.live[:i], s.live[i+1:]...)

		s.log.Info("creature despawned",
			"key", le.entity.Key,
			"id", le.entity.ID,
			"name", le.entity.DisplayName,
			"population", len(s.live))

		return le.entity, nil
	}

	return model.SpawnedEntity{}, fmt.Errorf("%w: %s", ErrUnknownSpawn, key)
}

// Teardown stops both timers and detaches any in-flight lookup: its result
// is discarded when it arrives. Safe to call more than once.
func (s *Scheduler) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true

	if s.warmUp != nil {
		s.warmUp.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.cancel()

	s.log.Info("spawn scheduler torn down",
		"population", len(s.live),
		"inFlight", s.inFlight)
}

// Stopped reports whether Teardown has been called.
func (s *Scheduler) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Wait blocks until every issued lookup has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
