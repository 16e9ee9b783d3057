package module

import (
	"lightbox/internal/platform/config"
)

// Options configures the stream module
type Options struct {
	// QueueDepth bounds each connection's pending ring
	QueueDepth int
}

// FromConfig reads options from config.Conf
func FromConfig(cfg config.Conf) Options {
	sf := cfg.Prefix("STREAM_")
	return Options{
		QueueDepth: sf.MayInt("QUEUE_DEPTH", 64),
	}
}
