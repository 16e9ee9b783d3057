package module

import (
	"lightbox/internal/platform/config"
)

// Options configures the social module
type Options struct {
	// WriteRPM caps authenticated follow toggles per client IP per minute. <= 0 disables the limiter
	WriteRPM int
}

// FromConfig reads options from config.Conf
func FromConfig(cfg config.Conf) Options {
	sf := cfg.Prefix("SOCIAL_")
	return Options{
		WriteRPM: sf.MayInt("WRITE_RPM", 60),
	}
}
