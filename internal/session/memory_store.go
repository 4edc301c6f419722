package session

import (
	"context"
	"sync"

	"github.com/udisondev/geospawn/internal/model"
)

// MemoryCatches is an in-process CatchStore, used when no database is configured.
type MemoryCatches struct {
	mu      sync.RWMutex
	catches []model.Catch
}

// NewMemoryCatches creates an empty store.
func NewMemoryCatches() *MemoryCatches {
	return &MemoryCatches{}
}

func (s *MemoryCatches) Save(_ context.Context, c model.Catch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catches = append(s.catches, c)
	return nil
}

// ListByDevice returns catches newest first; limit <= 0 means no limit.
func (s *MemoryCatches) ListByDevice(_ context.Context, deviceHash string, limit int) ([]model.Catch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Catch, 0)
	for i := len(s.catches) - 1; i >= 0; i-- {
		if s.catches[i].DeviceHash != deviceHash {
			continue
		}
		out = append(out, s.catches[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
