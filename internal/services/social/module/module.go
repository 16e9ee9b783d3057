// Package module wires the social surface into the API using modkit.
// Profile reads are public; the follow toggle is mounted behind auth and
// delegates to the injected mutation dispatcher
package module

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	modkit "lightbox/internal/modkit"
	"lightbox/internal/modkit/httpkit"
	str "lightbox/internal/platform/strings"
	socialhttp "lightbox/internal/services/social/http"
	socialrepo "lightbox/internal/services/social/repo"
	socialsvc "lightbox/internal/services/social/service"
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

	svc *socialsvc.Service
}

// New constructs a social module with the provided dependencies and options.
// Callers must inject the dispatcher via WithWires; Auth may be nil, which
// leaves the follow toggle open (dev mode)
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("social"), modkit.WithPrefix("/users")}, opts...)...)
	o := FromConfig(deps.Cfg)

	w, ok := b.Ports.(Wires)
	if !ok {
		panic("social module: expected WithWires(dispatch, auth)")
	}
	if w.Dispatch == nil {
		panic("social module: Wires missing Dispatch")
	}

	svc := socialsvc.New(deps.PG, socialrepo.NewPG(), deps.Cache)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Profiles: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		socialhttp.Register(r, m.svc)
		httpkit.Protected(r, w.Auth, func(pr httpkit.Router) {
			if o.WriteRPM > 0 {
				pr.Use(httprate.LimitByIP(o.WriteRPM, time.Minute))
			}
			socialhttp.RegisterWrites(pr, w.Dispatch)
		})
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

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }
