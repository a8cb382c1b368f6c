package archive

import (
	"time"

	"backend-recordpath/internal/geocode"
	"backend-recordpath/internal/shared/geo"
	"backend-recordpath/internal/tracking"
)

var t0 = time.Date(2024, time.June, 1, 7, 30, 0, 0, time.UTC)

func testJourney() tracking.Journey {
	pt := func(lat, lng float64, at time.Duration) tracking.TrackPoint {
		return tracking.TrackPoint{Coordinate: geo.Coordinate{Lat: lat, Lng: lng}, Timestamp: t0.Add(at), SpeedMps: -1, AccuracyM: 5}
	}
	return tracking.Journey{
		ID:        "journey-1",
		Title:     "Ridge loop",
		StartDate: t0,
		EndDate:   t0.Add(time.Hour),
		Segments: []tracking.Segment{
			{ID: "seg-1", StartTime: t0, EndTime: t0.Add(20 * time.Minute), Points: []tracking.TrackPoint{pt(46.0, 7.0, time.Minute), pt(46.001, 7.0, 2*time.Minute)}},
			{ID: "seg-2", StartTime: t0.Add(30 * time.Minute), EndTime: t0.Add(time.Hour), Points: []tracking.TrackPoint{pt(46.002, 7.0, 31*time.Minute)}},
		},
		Places: []tracking.Place{
			{Coordinate: geo.Coordinate{Lat: 46.0, Lng: 7.0}, Place: geocode.Place{Name: "Col", City: "Zermatt", Country: "Switzerland", CountryCode: "ch"}, ResolvedAt: t0.Add(time.Minute)},
		},
	}
}
