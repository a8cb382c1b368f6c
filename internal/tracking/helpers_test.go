package tracking

import (
	"math"
	"sync"
	"testing"
	"time"

	"backend-recordpath/internal/location"
	"backend-recordpath/internal/shared/geo"
)

var t0 = time.Date(2024, time.March, 9, 8, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock {
	return &fakeClock{now: at}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at
}

// northOf returns a coordinate m meters north of the equator/prime meridian origin.
func northOf(m float64) geo.Coordinate {
	return geo.Coordinate{Lat: m / geo.EarthRadiusM * 180 / math.Pi, Lng: 0}
}

func sample(c geo.Coordinate, at time.Time, accuracy float64) location.Sample {
	return location.Sample{Coordinate: c, Timestamp: at, AccuracyM: accuracy, SpeedMps: -1}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
