// Package module wires the live stream surface into the API using modkit
package module

import (
	"net/http"

	modkit "lightbox/internal/modkit"
	"lightbox/internal/modkit/httpkit"
	str "lightbox/internal/platform/strings"
	streamhttp "lightbox/internal/services/stream/http"
	streamsvc "lightbox/internal/services/stream/service"
)

// Module implements the modkit.Module interface
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	reg *streamsvc.Registry
}

// New constructs a stream module with the provided dependencies and options
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("stream"), modkit.WithPrefix("/stream")}, opts...)...)
	o := FromConfig(deps.Cfg)

	reg := streamsvc.New(streamsvc.Config{QueueDepth: o.QueueDepth})

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		reg:       reg,
	}
	m.ports = Ports{Publisher: reg}

	external := b.Register
	m.register = func(r httpkit.Router) {
		streamhttp.Register(r, m.reg)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Close drops all live connections
func (m *Module) Close() { m.reg.Close() }

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }
