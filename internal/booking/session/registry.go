package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/bus-storefront/pkg/application"
	pkgDomain "github.com/mateusmacedo/bus-storefront/pkg/domain"
)

// Registry keeps the live sessions of the process keyed by id. Sessions
// share the registry's dependencies.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      Config
	deps     Deps
	newID    pkgDomain.IDGenerator[string]
}

func NewRegistry(cfg Config, deps Deps, newID pkgDomain.IDGenerator[string]) *Registry {
	if deps.Logger == nil {
		deps.Logger = pkgApp.NopLogger{}
	}
	return &Registry{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		deps:     deps,
		newID:    newID,
	}
}

func (r *Registry) Open(ctx context.Context) *Session {
	s := New(r.newID(), r.cfg, r.deps)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	pkgApp.LogInfo(ctx, r.deps.Logger, "session opened", map[string]interface{}{"session_id": s.ID()})
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrSessionNotFound)
	}
	return s, nil
}

func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", id, domain.ErrSessionNotFound)
	}
	pkgApp.LogInfo(ctx, r.deps.Logger, "session closed", map[string]interface{}{"session_id": id})
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than idle and returns how many went.
// Stored bookings survive their session.
func (r *Registry) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var removed []string
	for id, s := range r.sessions {
		if s.LastActive().Before(cutoff) {
			delete(r.sessions, id)
			removed = append(removed, id)
		}
	}
	r.mu.Unlock()

	if len(removed) > 0 {
		pkgApp.LogInfo(ctx, r.deps.Logger, "idle sessions swept", map[string]interface{}{
			"count":       len(removed),
			"session_ids": removed,
		})
	}
	return len(removed)
}

// RunSweeper sweeps every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx, idle)
		}
	}
}

func (r *Registry) now() time.Time {
	if r.deps.Clock != nil {
		return r.deps.Clock.Now()
	}
	return time.Now()
}
