package tracking

import (
	"time"

	"backend-recordpath/internal/location"
	"backend-recordpath/internal/shared/geo"
)

type FilterConfig struct {
	AccuracyThreshold float64       // meters; readings at or above are dropped
	MinInterval       time.Duration // since the last accepted point
	MinDistance       float64       // meters from the last accepted point
}

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		AccuracyThreshold: 50,
		MinInterval:       10 * time.Second,
		MinDistance:       5,
	}
}

// SampleFilter turns raw samples into track points. Its only state is the
// last accepted point; rejected samples never touch it.
type SampleFilter struct {
	cfg  FilterConfig
	last *TrackPoint
}

func NewSampleFilter(cfg FilterConfig) *SampleFilter {
	return &SampleFilter{cfg: cfg}
}

// Accept applies accuracy, interval and distance checks in that order.
func (f *SampleFilter) Accept(s location.Sample) (TrackPoint, bool) {
	if !s.Valid() {
		return TrackPoint{}, false
	}
	if s.AccuracyM >= f.cfg.AccuracyThreshold {
		return TrackPoint{}, false
	}
	if f.last != nil {
		if s.Timestamp.Sub(f.last.Timestamp) < f.cfg.MinInterval {
			return TrackPoint{}, false
		}
		if geo.Distance(s.Coordinate, f.last.Coordinate) < f.cfg.MinDistance {
			return TrackPoint{}, false
		}
	}

	p := TrackPoint{
		Coordinate: s.Coordinate,
		Timestamp:  s.Timestamp,
		AltitudeM:  s.AltitudeM,
		SpeedMps:   s.SpeedMps,
		AccuracyM:  s.AccuracyM,
	}
	f.last = &p
	return p, true
}

func (f *SampleFilter) Last() (TrackPoint, bool) {
	if f.last == nil {
		return TrackPoint{}, false
	}
	return *f.last, true
}

// Reset forgets the last point so the next segment's first sample only has
// to pass the accuracy check.
func (f *SampleFilter) Reset() {
	f.last = nil
}
