package tracking

import "backend-recordpath/internal/config"

// ConfigFrom maps environment settings onto engine settings. Unset or
// non-positive values keep the defaults.
func ConfigFrom(cfg config.Config) Config {
	tc := DefaultConfig()
	if cfg.AccuracyThresholdMeters > 0 {
		tc.Filter.AccuracyThreshold = cfg.AccuracyThresholdMeters
	}
	if d := cfg.MinInterval(); d > 0 {
		tc.Filter.MinInterval = d
	}
	if cfg.MinDistanceMeters > 0 {
		tc.Filter.MinDistance = cfg.MinDistanceMeters
	}
	if d := cfg.GeocodeInterval(); d > 0 {
		tc.GeocodeInterval = d
	}
	if d := cfg.GeocodeTimeout(); d > 0 {
		tc.GeocodeTimeout = d
	}
	return tc
}
