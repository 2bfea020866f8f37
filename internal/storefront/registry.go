package storefront

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"drop-storefront/internal/domain"
	"drop-storefront/internal/drop"
	"drop-storefront/internal/observability"
)

type controllerKey struct {
	session string
	slug    string
}

// Registry keeps one Controller per (session, collection slug).
type Registry struct {
	resolver drop.Resolver
	recorder *Recorder
	logger   *zap.Logger
	now      func() time.Time

	mu          sync.Mutex
	controllers map[controllerKey]*Controller
}

// NewRegistry creates a Registry that resolves drop gateways through resolver.
func NewRegistry(resolver drop.Resolver, recorder *Recorder, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		resolver:    resolver,
		recorder:    recorder,
		logger:      logger,
		now:         time.Now,
		controllers: make(map[controllerKey]*Controller),
	}
}

// Controller returns the session's controller for collection, creating it on first use.
func (r *Registry) Controller(sessionID string, collection *domain.Collection) (*Controller, error) {
	key := controllerKey{session: sessionID, slug: collection.Slug.Current}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[key]; ok {
		c.Touch()
		return c, nil
	}

	gateway, err := r.resolver.Gateway(collection.Address)
	if err != nil {
		return nil, fmt.Errorf("resolve drop %s: %w", collection.Address, err)
	}
	c := NewController(collection, gateway, ControllerConfig{
		Recorder: r.recorder,
		Logger:   r.logger,
		Now:      r.now,
	})
	r.controllers[key] = c
	observability.SetActiveSessions(r.sessionsLocked())
	return c, nil
}

// Lookup returns an existing controller without creating one.
func (r *Registry) Lookup(sessionID, slug string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[controllerKey{session: sessionID, slug: slug}]
	if ok {
		c.Touch()
	}
	return c, ok
}

// SessionControllers returns every controller of a session.
func (r *Registry) SessionControllers(sessionID string) []*Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Controller
	for k, c := range r.controllers {
		if k.session == sessionID {
			out = append(out, c)
		}
	}
	return out
}

// Sessions returns the number of distinct sessions with a controller.
func (r *Registry) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionsLocked()
}

func (r *Registry) sessionsLocked() int {
	seen := make(map[string]struct{}, len(r.controllers))
	for k := range r.controllers {
		seen[k.session] = struct{}{}
	}
	return len(seen)
}

// Sweep evicts controllers idle for longer than maxIdle. Controllers with a
// mint in flight are kept. Returns how many were evicted.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, c := range r.controllers {
		if c.busy() || c.idleSince().After(cutoff) {
			continue
		}
		delete(r.controllers, k)
		n++
	}
	if n > 0 {
		observability.SetActiveSessions(r.sessionsLocked())
	}
	return n
}

// Run sweeps idle controllers every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, maxIdle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := r.Sweep(maxIdle); n > 0 {
				r.logger.Debug("evicted idle controllers", zap.Int("count", n))
			}
		}
	}
}
