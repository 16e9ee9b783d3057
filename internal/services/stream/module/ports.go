package module

import (
	"lightbox/internal/services/stream/domain"
)

// Ports exposed by the stream module
type Ports struct {
	Publisher domain.PublisherPort
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
