package tracking

import (
	"fmt"
	"sort"
	"time"

	"backend-recordpath/internal/geocode"
	"backend-recordpath/internal/shared/geo"
)

// TrackPoint is a sample that passed the filter. It is never mutated.
type TrackPoint struct {
	geo.Coordinate
	Timestamp time.Time `json:"timestamp"`
	AltitudeM float64   `json:"altitude_m"`
	SpeedMps  float64   `json:"speed_mps"`
	AccuracyM float64   `json:"accuracy_m"`
}

// HasSpeed is false when the sensor reported an unknown (negative) speed.
func (p TrackPoint) HasSpeed() bool {
	return p.SpeedMps >= 0
}

// Segment is one continuous run between a start/resume and the next pause/stop.
type Segment struct {
	ID        string       `json:"id"`
	Points    []TrackPoint `json:"points"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
	Active    bool         `json:"active"`
}

func newSegment(id string, at time.Time) Segment {
	return Segment{ID: id, StartTime: at, EndTime: at, Active: true}
}

func (s *Segment) append(p TrackPoint) {
	s.Points = append(s.Points, p)
	if p.Timestamp.After(s.EndTime) {
		s.EndTime = p.Timestamp
	}
}

func (s *Segment) close(at time.Time) {
	if at.After(s.EndTime) {
		s.EndTime = at
	}
	s.Active = false
}

func (s Segment) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

func (s Segment) Coordinates() []geo.Coordinate {
	coords := make([]geo.Coordinate, len(s.Points))
	for i, p := range s.Points {
		coords[i] = p.Coordinate
	}
	return coords
}

// Distance in meters along the recorded points.
func (s Segment) Distance() float64 {
	return geo.SegmentDistance(s.Coordinates())
}

// AverageSpeed in m/s over the segment's wall time, 0 for an instant segment.
func (s Segment) AverageSpeed() float64 {
	d := s.Duration().Seconds()
	if d <= 0 {
		return 0
	}
	return s.Distance() / d
}

// MaxSpeed is the highest speed the sensor reported, 0 when none was known.
func (s Segment) MaxSpeed() float64 {
	var max float64
	for _, p := range s.Points {
		if p.HasSpeed() && p.SpeedMps > max {
			max = p.SpeedMps
		}
	}
	return max
}

func (s Segment) Bounds() geo.Bounds {
	return geo.BoundingBox(s.Coordinates())
}

// Photo is attached by the host; the engine only carries it.
type Photo struct {
	ID        string          `json:"id"`
	Location  *geo.Coordinate `json:"location,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Caption   string          `json:"caption,omitempty"`
	ObjectKey string          `json:"object_key,omitempty"`
}

// Place is a resolved reverse-geocode attribution for a recorded point.
type Place struct {
	geo.Coordinate
	geocode.Place
	ResolvedAt time.Time `json:"resolved_at"`
}

type Journey struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Segments  []Segment `json:"segments"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Notes     string    `json:"notes,omitempty"`
	Photos    []Photo   `json:"photos,omitempty"`
	// Places is best-effort: lookups still in flight when the journey is
	// finalized are dropped, so it can be incomplete after stop.
	Places    []Place   `json:"places,omitempty"`
}

// current returns the open segment, which is always the last one.
func (j *Journey) current() *Segment {
	if len(j.Segments) == 0 {
		return nil
	}
	last := &j.Segments[len(j.Segments)-1]
	if !last.Active {
		return nil
	}
	return last
}

// CurrentSegment returns a copy of the open segment, if any.
func (j Journey) CurrentSegment() (Segment, bool) {
	if s := j.current(); s != nil {
		return *s, true
	}
	return Segment{}, false
}

func (j Journey) TotalDistance() float64 {
	var total float64
	for _, s := range j.Segments {
		total += s.Distance()
	}
	return total
}

// TotalDuration is wall time from start to end, paused gaps included.
func (j Journey) TotalDuration() time.Duration {
	return j.EndDate.Sub(j.StartDate)
}

// MovingDuration sums segment durations, leaving paused gaps out.
func (j Journey) MovingDuration() time.Duration {
	var total time.Duration
	for _, s := range j.Segments {
		total += s.Duration()
	}
	return total
}

func (j Journey) PointCount() int {
	n := 0
	for _, s := range j.Segments {
		n += len(s.Points)
	}
	return n
}

// Bounds covers every recorded point; zero when nothing was recorded.
func (j Journey) Bounds() geo.Bounds {
	var coords []geo.Coordinate
	for _, s := range j.Segments {
		coords = append(coords, s.Coordinates()...)
	}
	return geo.BoundingBox(coords)
}

func (j Journey) Countries() []string {
	return distinct(j.Places, func(p Place) string { return p.Country })
}

func (j Journey) Cities() []string {
	return distinct(j.Places, func(p Place) string { return p.City })
}

func distinct(places []Place, field func(Place) string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range places {
		v := field(p)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy safe to hand to other goroutines.
func (j Journey) Clone() Journey {
	c := j
	c.Segments = make([]Segment, len(j.Segments))
	for i, s := range j.Segments {
		s.Points = append([]TrackPoint(nil), s.Points...)
		c.Segments[i] = s
	}
	c.Photos = append([]Photo(nil), j.Photos...)
	c.Places = append([]Place(nil), j.Places...)
	return c
}

type Summary struct {
	JourneyID       string     `json:"journey_id"`
	Title           string     `json:"title"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	SegmentCount    int        `json:"segment_count"`
	PointCount      int        `json:"point_count"`
	DistanceM       float64    `json:"distance_m"`
	DurationSec     int64      `json:"duration_sec"`
	MovingSec       int64      `json:"moving_sec"`
	AverageSpeedMps float64    `json:"average_speed_mps"`
	Bounds          geo.Bounds `json:"bounds"`
	Countries       []string   `json:"countries"`
	Cities          []string   `json:"cities"`
}

func (j Journey) Summary() Summary {
	distance := j.TotalDistance()
	moving := j.MovingDuration()
	avg := 0.0
	if moving.Seconds() > 0 {
		avg = distance / moving.Seconds()
	}
	return Summary{
		JourneyID:       j.ID,
		Title:           j.Title,
		StartDate:       j.StartDate,
		EndDate:         j.EndDate,
		SegmentCount:    len(j.Segments),
		PointCount:      j.PointCount(),
		DistanceM:       distance,
		DurationSec:     int64(j.TotalDuration().Seconds()),
		MovingSec:       int64(moving.Seconds()),
		AverageSpeedMps: avg,
		Bounds:          j.Bounds(),
		Countries:       j.Countries(),
		Cities:          j.Cities(),
	}
}

// FormatDistance renders meters the way the journey list shows them.
func FormatDistance(m float64) string {
	if m < 1000 {
		return fmt.Sprintf("%.0f m", m)
	}
	return fmt.Sprintf("%.1f km", m/1000)
}

func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
