package module

import "lightbox/internal/platform/config"

// Options holds configuration settings for the dispatch module
type Options struct {
	MaxAttempts   int
	RetryBaseMs   int
	SinkTimeoutMs int
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	df := cfg.Prefix("DISPATCH_")
	return Options{
		MaxAttempts:   df.MayInt("MAX_ATTEMPTS", 3),
		RetryBaseMs:   df.MayInt("RETRY_BASE_MS", 25),
		SinkTimeoutMs: df.MayInt("SINK_TIMEOUT_MS", 5000),
	}
}
