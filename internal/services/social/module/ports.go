package module

import (
	modkit "lightbox/internal/modkit"
	"lightbox/internal/platform/net/middleware"
	dispatchdom "lightbox/internal/services/dispatch/domain"
	"lightbox/internal/services/social/domain"
)

// Ports exposed by the social module
type Ports struct {
	Profiles domain.ProfilePort
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Wires carries the cross-module ports the follow toggle requires
type Wires struct {
	Dispatch dispatchdom.DispatchPort
	Auth     middleware.AuthPort
}

// WithWires lets callers inject the dispatcher and auth ports without
// spelling out modkit.WithPorts at the call site
func WithWires(d dispatchdom.DispatchPort, a middleware.AuthPort) modkit.Option {
	return modkit.WithPorts(Wires{Dispatch: d, Auth: a})
}
