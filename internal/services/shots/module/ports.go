package module

import (
	modkit "lightbox/internal/modkit"
	"lightbox/internal/platform/net/middleware"
	dispatchdom "lightbox/internal/services/dispatch/domain"
	"lightbox/internal/services/shots/domain"
)

// Ports exposed by the shots module
type Ports struct {
	Query domain.QueryPort
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Wires carries the cross-module ports the write surface requires
type Wires struct {
	Dispatch dispatchdom.DispatchPort
	Auth     middleware.AuthPort
}

// WithWires lets callers inject the dispatcher and auth ports without
// spelling out modkit.WithPorts at the call site
func WithWires(d dispatchdom.DispatchPort, a middleware.AuthPort) modkit.Option {
	return modkit.WithPorts(Wires{Dispatch: d, Auth: a})
}
