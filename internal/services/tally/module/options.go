package module

import "lightbox/internal/platform/config"

// Options holds configuration settings for the tally module
type Options struct {
	IntervalSec int
	BatchSize   int
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	tf := cfg.Prefix("TALLY_")
	return Options{
		IntervalSec: tf.MayInt("INTERVAL_SEC", 600),
		BatchSize:   tf.MayInt("BATCH_SIZE", 500),
	}
}
