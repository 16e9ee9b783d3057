// Package module wires the tally worker service and exposes its ports
package module

import (
	"time"

	"lightbox/internal/modkit"
	"lightbox/internal/modkit/httpkit"
	"lightbox/internal/services/tally/domain"
	"lightbox/internal/services/tally/repo"
	"lightbox/internal/services/tally/service"
)

// Ports exposed by the tally module
type Ports struct {
	Worker domain.WorkerPort
}

// Module defines the tally worker module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the tally worker module with its ports
func New(deps modkit.Deps, overrides Options) *Module {
	// Load defaults, then apply non-zero overrides
	opts := FromConfig(deps.Cfg)

	if overrides.IntervalSec != 0 {
		opts.IntervalSec = overrides.IntervalSec
	}
	if overrides.BatchSize != 0 {
		opts.BatchSize = overrides.BatchSize
	}

	svc := service.New(deps.PG, repo.NewPG(), deps.Cache, service.Config{
		Interval:  time.Duration(opts.IntervalSec) * time.Second,
		BatchSize: opts.BatchSize,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Worker: svc}
	return m
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "tally" }

// Prefix returns the module config prefix (none for worker-only service)
func (m *Module) Prefix() string { return "" }

// MountRoutes returns no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
