// Package session owns one spawn scheduler per device and the device-facing
// operations around it: location delivery, catching and idle teardown.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/geospawn/internal/clock"
	"github.com/udisondev/geospawn/internal/geo"
	"github.com/udisondev/geospawn/internal/model"
	"github.com/udisondev/geospawn/internal/spawn"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidLocation = errors.New("invalid location")
	ErrOutOfRange      = errors.New("spawn out of catch range")
)

// CatchStore persists caught creatures.
type CatchStore interface {
	Save(ctx context.Context, c model.Catch) error
	ListByDevice(ctx context.Context, deviceHash string, limit int) ([]model.Catch, error)
}

// Config holds session parameters.
type Config struct {
	Spawn        spawn.Config
	MinDistance  float64 // meters between forwarded fixes
	Fallback     model.LocationFix
	IdleTimeout  time.Duration
	ReapInterval time.Duration
	CatchRadius  float64 // meters, <= 0 disables the range check
}

// Session is one device's scheduler and location filter.
type Session struct {
	deviceHash string
	scheduler  *spawn.Scheduler
	filter     *geo.Filter
	lastSeen   atomic.Int64 // unix nanoseconds
}

// DeviceHash returns the pseudonymous device id.
func (s *Session) DeviceHash() string {
	return s.deviceHash
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock for schedulers and idle tracking.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithSchedulerOptions appends options passed to every new scheduler.
func WithSchedulerOptions(opts ...spawn.Option) Option {
	return func(m *Manager) { m.schedulerOpts = append(m.schedulerOpts, opts...) }
}

// Manager manages device sessions.
type Manager struct {
	cfg           Config
	lookup        spawn.Lookup
	catches       CatchStore
	clock         clock.Clock
	schedulerOpts []spawn.Option

	sessions     sync.Map // map[string]*Session — deviceHash → session
	sessionCount atomic.Int32
}

// NewManager creates a session manager.
func NewManager(cfg Config, lookup spawn.Lookup, catches CatchStore, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		lookup:  lookup,
		catches: catches,
		clock:   clock.Real(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ReportLocation delivers a device fix. The session and its scheduler are
// created on the first fix; fixes closer than MinDistance to the last
// forwarded one are dropped.
func (m *Manager) ReportLocation(deviceID string, fix model.LocationFix) error {
	if !fix.Valid() {
		return fmt.Errorf("%w: %+v", ErrInvalidLocation, fix)
	}

	s := m.getOrCreate(deviceID)
	s.touch(m.clock.Now())

	if !s.filter.Accept(fix) {
		return nil
	}
	s.scheduler.OnLocationAvailable(fix)
	return nil
}

// ReportUnavailable delivers the configured fallback fix for a device
// without a working sensor.
func (m *Manager) ReportUnavailable(deviceID string) error {
	return m.ReportLocation(deviceID, m.cfg.Fallback)
}

func (m *Manager) getOrCreate(deviceID string) *Session {
	hash := HashDevice(deviceID)
	if v, ok := m.sessions.Load(hash); ok {
		return v.(*Session)
	}

	opts := append([]spawn.Option{
		spawn.WithClock(m.clock),
		spawn.WithLogger(slog.Default().With("device", hash)),
	}, m.schedulerOpts...)

	s := &Session{
		deviceHash: hash,
		scheduler:  spawn.NewScheduler(m.cfg.Spawn, m.lookup, opts...),
		filter:     geo.NewFilter(m.cfg.MinDistance),
	}
	s.touch(m.clock.Now())

	actual, loaded := m.sessions.LoadOrStore(hash, s)
	if loaded {
		// Lost the race; ours never received a fix, so it has no timers
		s.scheduler.Teardown()
		return actual.(*Session)
	}

	m.sessionCount.Add(1)
	slog.Info("session opened", "device", hash)
	return s
}

// get returns the device's session and marks it active: a renderer that keeps
// polling holds the session open as long as one that reports fixes.
func (m *Manager) get(deviceID string) (*Session, error) {
	v, ok := m.sessions.Load(HashDevice(deviceID))
	if !ok {
		return nil, ErrSessionNotFound
	}
	s := v.(*Session)
	s.touch(m.clock.Now())
	return s, nil
}

// Snapshot returns the device's live set for rendering.
func (m *Manager) Snapshot(deviceID string) (spawn.Snapshot, error) {
	s, err := m.get(deviceID)
	if err != nil {
		return spawn.Snapshot{}, err
	}
	return s.scheduler.Snapshot(), nil
}

// MarkImageLoaded forwards the renderer's image-load notification.
func (m *Manager) MarkImageLoaded(deviceID, key string) error {
	s, err := m.get(deviceID)
	if err != nil {
		return err
	}
	if !s.scheduler.MarkImageLoaded(key) {
		return fmt.Errorf("%w: %s", spawn.ErrUnknownSpawn, key)
	}
	return nil
}

// Catch removes a live entity that is within catch range of the device and
// records it. The entity is removed before it is saved; a save failure is
// returned and the entity is not restored.
func (m *Manager) Catch(ctx context.Context, deviceID, key string) (model.Catch, error) {
	s, err := m.get(deviceID)
	if err != nil {
		return model.Catch{}, err
	}

	entity, err := s.scheduler.Despawn(key, m.checkRange)
	if err != nil {
		return model.Catch{}, err
	}

	c := model.Catch{
		ID:         uuid.NewString(),
		DeviceHash: s.deviceHash,
		SpawnKey:   entity.Key,
		SpeciesID:  entity.ID,
		Name:       entity.DisplayName,
		Category:   entity.PrimaryCategory,
		Latitude:   entity.Latitude,
		Longitude:  entity.Longitude,
		ImageRef:   entity.ImageRef,
		CaughtAt:   m.clock.Now().UTC(),
	}

	if err := m.catches.Save(ctx, c); err != nil {
		slog.Error("failed to save catch",
			"device", s.deviceHash,
			"key", entity.Key,
			"id", entity.ID,
			"error", err)
		return model.Catch{}, fmt.Errorf("saving catch: %w", err)
	}

	slog.Info("creature caught",
		"device", s.deviceHash,
		"key", entity.Key,
		"id", entity.ID,
		"name", entity.DisplayName)

	return c, nil
}

func (m *Manager) checkRange(e model.SpawnedEntity, from model.LocationFix) error {
	if m.cfg.CatchRadius <= 0 {
		return nil
	}
	if geo.Within(from, e.Position(), m.cfg.CatchRadius) {
		return nil
	}
	return fmt.Errorf("%w: %.0fm away, radius %.0fm",
		ErrOutOfRange, geo.Distance(from, e.Position()), m.cfg.CatchRadius)
}

// Catches lists the device's persisted catches, newest first.
func (m *Manager) Catches(ctx context.Context, deviceID string, limit int) ([]model.Catch, error) {
	catches, err := m.catches.ListByDevice(ctx, HashDevice(deviceID), limit)
	if err != nil {
		return nil, fmt.Errorf("listing catches: %w", err)
	}
	return catches, nil
}

// Close tears down the device's scheduler.
func (m *Manager) Close(deviceID string) error {
	hash := HashDevice(deviceID)
	v, ok := m.sessions.LoadAndDelete(hash)
	if !ok {
		return ErrSessionNotFound
	}
	m.closeSession(v.(*Session), "closed")
	return nil
}

func (m *Manager) closeSession(s *Session, reason string) {
	m.sessionCount.Add(-1)
	s.scheduler.Teardown()
	slog.Info("session ended", "device", s.deviceHash, "reason", reason)
}

// Count returns the number of open sessions (O(1) cached count).
func (m *Manager) Count() int {
	return int(m.sessionCount.Load())
}

// Reap closes sessions idle for longer than IdleTimeout. Returns the number closed.
func (m *Manager) Reap(now time.Time) int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}

	closed := 0
	m.sessions.Range(func(key, value any) bool {
		s := value.(*Session)
		if s.idleSince(now) <= m.cfg.IdleTimeout {
			return true
		}
		if m.sessions.CompareAndDelete(key, value) {
			m.closeSession(s, "idle")
			closed++
		}
		return true
	})
	return closed
}

// Run reaps idle sessions every ReapInterval (blocks until context is canceled).
func (m *Manager) Run(ctx context.Context) error {
	interval := m.cfg.ReapInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("session reaper started", "interval", interval, "idleTimeout", m.cfg.IdleTimeout)

	for {
		select {
		case <-ctx.Done():
			slog.Info("session reaper stopping")
			return ctx.Err()

		case <-ticker.C:
			if n := m.Reap(m.clock.Now()); n > 0 {
				slog.Debug("idle sessions reaped", "count", n, "open", m.Count())
			}
		}
	}
}

// CloseAll tears down every session and waits for outstanding lookups.
func (m *Manager) CloseAll() {
	var closing []*Session
	m.sessions.Range(func(key, value any) bool {
		if m.sessions.CompareAndDelete(key, value) {
			s := value.(*Session)
			m.closeSession(s, "shutdown")
			closing = append(closing, s)
		}
		return true
	})

	for _, s := range closing {
		s.scheduler.Wait()
	}
}
