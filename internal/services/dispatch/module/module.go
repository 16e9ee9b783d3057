// Package module implements the dispatch module
package module

import (
	"net/http"
	"time"

	"lightbox/internal/modkit"
	"lightbox/internal/modkit/httpkit"
	"lightbox/internal/services/dispatch/domain"
	"lightbox/internal/services/dispatch/repo"
	"lightbox/internal/services/dispatch/service"
)

// Ports exposed by the dispatch module
type Ports struct {
	Dispatch domain.DispatchPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new dispatch module.
// The module is headless: mutations enter through the DispatchPort, which
// other modules mount behind their own routes
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("dispatch"),
	}, opts...)...)

	// Basic guardrails against incorrect wiring
	ports, ok := b.Ports.(domain.Ports)
	if !ok {
		panic("dispatch module: expected WithPorts(dispatch/domain.Ports)")
	}

	// Merge config + overrides
	cfg := FromConfig(deps.Cfg)
	if overrides.MaxAttempts != 0 {
		cfg.MaxAttempts = overrides.MaxAttempts
	}
	if overrides.RetryBaseMs != 0 {
		cfg.RetryBaseMs = overrides.RetryBaseMs
	}
	if overrides.SinkTimeoutMs != 0 {
		cfg.SinkTimeoutMs = overrides.SinkTimeoutMs
	}

	// Engagement rows go to ClickHouse when a connection is wired
	var sink domain.EngagementSink
	if deps.CH != nil {
		sink = repo.NewCHSink(deps.CH)
	}

	svc := service.New(
		deps.PG,
		repo.NewPG(),
		deps.Cache,
		ports.Fanout,
		sink,
		service.Config{
			MaxAttempts: cfg.MaxAttempts,
			RetryBase:   time.Duration(cfg.RetryBaseMs) * time.Millisecond,
			SinkTimeout: time.Duration(cfg.SinkTimeoutMs) * time.Millisecond,
		},
	)

	m := &Module{deps: deps}
	m.ports = Ports{Dispatch: svc}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "dispatch" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// Prefix satisfies modkit.Module
func (m *Module) Prefix() string { return "" }

// Middlewares satisfies modkit.Module
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return nil }

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(_ httpkit.Router) {}
