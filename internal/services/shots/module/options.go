package module

import (
	"lightbox/internal/platform/config"
)

// Options configures the shots module
type Options struct {
	CommentPageSize    int
	MaxCommentPageSize int

	// WriteRPM caps authenticated writes per client IP per minute. <= 0 disables the limiter
	WriteRPM int
}

// FromConfig reads options from config.Conf
func FromConfig(cfg config.Conf) Options {
	sf := cfg.Prefix("SHOTS_")
	return Options{
		CommentPageSize:    sf.MayInt("COMMENT_PAGE_SIZE", 20),
		MaxCommentPageSize: sf.MayInt("COMMENT_PAGE_MAX", 100),
		WriteRPM:           sf.MayInt("WRITE_RPM", 120),
	}
}
