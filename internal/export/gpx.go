package export

import (
	"io"
	"time"

	"backend-recordpath/internal/location"
	"backend-recordpath/internal/tracking"

	"github.com/tkrajina/gpxgo/gpx"
)

const (
	gpxVersion  = "1.1"
	gpxXMLNs    = "http://www.topografix.com/GPX/1/1"
	gpxXMLNsXsi = "http://www.w3.org/2001/XMLSchema-instance"
	gpxCreator  = "recordpath"
)

// ToGPX maps a journey to one track with a trkseg per segment.
func ToGPX(j tracking.Journey) *gpx.GPX {
	segments := make([]gpx.GPXTrackSegment, len(j.Segments))
	for i, s := range j.Segments {
		points := make([]gpx.GPXPoint, len(s.Points))
		for k, p := range s.Points {
			points[k] = gpx.GPXPoint{
				Point: gpx.Point{
					Latitude:  p.Lat,
					Longitude: p.Lng,
					Elevation: *gpx.NewNullableFloat64(p.AltitudeM),
				},
				Timestamp: p.Timestamp.UTC(),
			}
		}
		segments[i] = gpx.GPXTrackSegment{Points: points}
	}

	start := j.StartDate.UTC()
	return &gpx.GPX{
		XMLNs:        gpxXMLNs,
		XmlNsXsi:     gpxXMLNsXsi,
		XmlSchemaLoc: gpxXMLNs,

		Version:     gpxVersion,
		Creator:     gpxCreator,
		Name:        j.Title,
		Description: j.Notes,
		Time:        &start,
		Tracks: []gpx.GPXTrack{{
			Name:     j.Title,
			Segments: segments,
		}},
	}
}

func EncodeGPX(w io.Writer, j tracking.Journey) error {
	data, err := ToGPX(j).ToXml(gpx.ToXmlParams{Version: gpxVersion, Indent: true})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Track is a recorded GPX file turned back into raw samples, one slice per
// trkseg in file order.
type Track struct {
	Name     string
	Segments [][]location.Sample
}

// ReadGPX parses a GPX document into samples. Points without a timestamp
// cannot be replayed and are skipped. GPX carries no accuracy, so samples
// get accuracy 0.
func ReadGPX(data []byte) (Track, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return Track{}, err
	}

	t := Track{Name: g.Name}
	for _, trk := range g.Tracks {
		if t.Name == "" {
			t.Name = trk.Name
		}
		for _, seg := range trk.Segments {
			var samples []location.Sample
			for _, p := range seg.Points {
				if p.Timestamp.IsZero() {
					continue
				}
				samples = append(samples, sampleFromGPX(p))
			}
			if len(samples) > 0 {
				t.Segments = append(t.Segments, samples)
			}
		}
	}
	return t, nil
}

func sampleFromGPX(p gpx.GPXPoint) location.Sample {
	s := location.Sample{
		Timestamp: p.Timestamp.In(time.UTC),
		SpeedMps:  -1,
	}
	s.Lat = p.Latitude
	s.Lng = p.Longitude
	if p.Elevation.NotNull() {
		s.AltitudeM = p.Elevation.Value()
	}
	return s
}
