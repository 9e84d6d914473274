package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/corpact/ruleflow/pkg/api"
)

type (
	// Unit is a pluggable piece of business logic matched to a rule by its
	// string id. One unit instance is shared across all concurrently
	// running jobs, so implementations must hold no per-job mutable state;
	// everything job-specific flows through the Context parameter
	Unit interface {
		ID() api.UnitID
		Execute(ctx context.Context, ec *Context, p *api.Packet) error
	}

	// Initializer is implemented by units needing one-time setup at plan
	// load
	Initializer interface {
		Initialize(ctx context.Context) error
	}

	// Shutdowner is implemented by units needing teardown at process exit
	Shutdowner interface {
		Shutdown(ctx context.Context) error
	}

	// Compensator is implemented by units whose effects can be undone.
	// Compensate receives the same packet and context as the original
	// Execute
	Compensator interface {
		Compensate(ctx context.Context, ec *Context, p *api.Packet) error
	}

	// Registry maps unit ids to their implementations. It is populated at
	// startup and read-only afterwards
	Registry struct {
		mu    sync.RWMutex
		units map[api.UnitID]Unit
	}
)

var (
	ErrUnitExists       = errors.New("unit already registered")
	ErrUnitNotFound     = errors.New("unit not registered")
	ErrUnresolvedUnits  = errors.New("rules reference unregistered units")
	ErrNilUnit          = errors.New("unit must not be nil")
	ErrMissingUnitIdent = errors.New("unit must have an id")
)

// NewRegistry creates an empty unit registry
func NewRegistry() *Registry {
	return &Registry{units: map[api.UnitID]Unit{}}
}

// Register adds a unit under its declared id
func (r *Registry) Register(u Unit) error {
	if u == nil {
		return ErrNilUnit
	}
	id := u.ID()
	if id == "" {
		return ErrMissingUnitIdent
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.units[id]; ok {
		return fmt.Errorf("%w: %s", ErrUnitExists, id)
	}
	r.units[id] = u
	return nil
}

// Lookup resolves a unit by id
func (r *Registry) Lookup(id api.UnitID) (Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[id]
	return u, ok
}

// ValidateRules checks every configured rule against the registry; a rule
// referencing an unregistered unit fails the load outright, because a
// missing unit indicates a deployment or configuration mismatch
func (r *Registry) ValidateRules(rules []*api.Rule) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missing []api.UnitID
	seen := map[api.UnitID]struct{}{}
	for _, rule := range rules {
		if _, ok := seen[rule.UnitID]; ok {
			continue
		}
		seen[rule.UnitID] = struct{}{}
		if _, ok := r.units[rule.UnitID]; !ok {
			missing = append(missing, rule.UnitID)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrUnresolvedUnits, missing)
	}
	return nil
}

// InitAll runs Initialize on every unit that declares it
func (r *Registry) InitAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.units {
		if init, ok := u.(Initializer); ok {
			if err := init.Initialize(ctx); err != nil {
				return fmt.Errorf("unit %s: %w", u.ID(), err)
			}
		}
	}
	return nil
}

// ShutdownAll runs Shutdown on every unit that declares it; errors are
// collected, not short-circuited, so every unit gets its teardown
func (r *Registry) ShutdownAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for _, u := range r.units {
		if sd, ok := u.(Shutdowner); ok {
			if err := sd.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("unit %s: %w", u.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
