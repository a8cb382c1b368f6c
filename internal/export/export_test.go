package export

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"backend-recordpath/internal/geocode"
	"backend-recordpath/internal/shared/geo"
	"backend-recordpath/internal/tracking"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, time.May, 4, 6, 0, 0, 0, time.UTC)

func testJourney() tracking.Journey {
	pt := func(lat, lng, alt float64, at time.Duration) tracking.TrackPoint {
		return tracking.TrackPoint{Coordinate: geo.Coordinate{Lat: lat, Lng: lng}, Timestamp: t0.Add(at), AltitudeM: alt, SpeedMps: -1, AccuracyM: 4}
	}
	return tracking.Journey{
		ID:        "j-42",
		Title:     "Dawn patrol",
		Notes:     "windy",
		StartDate: t0,
		EndDate:   t0.Add(time.Hour),
		Segments: []tracking.Segment{
			{ID: "s1", StartTime: t0, EndTime: t0.Add(10 * time.Minute), Points: []tracking.TrackPoint{
				pt(45.8326, 6.8652, 1035, time.Minute),
				pt(45.8331, 6.8660, 1042, 2*time.Minute),
			}},
			{ID: "s2", StartTime: t0.Add(20 * time.Minute), EndTime: t0.Add(time.Hour), Points: []tracking.TrackPoint{
				pt(45.8340, 6.8671, 1050, 21*time.Minute),
			}},
		},
		Places: []tracking.Place{{
			Coordinate: geo.Coordinate{Lat: 45.8326, Lng: 6.8652},
			Place:      geocode.Place{Name: "Chamonix", City: "Chamonix", Country: "France", CountryCode: "fr"},
		}},
	}
}

func TestParseFormat(t *testing.T) {
	require := require.New(t)

	tests := map[string]struct {
		in   string
		want Format
		ok   bool
	}{
		"json":    {in: "json", want: FormatJSON, ok: true},
		"gpx":     {in: " GPX ", want: FormatGPX, ok: true},
		"kml":     {in: "kml", want: FormatKML, ok: true},
		"unknown": {in: "csv", ok: false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f, err := ParseFormat(tc.in)
			if !tc.ok {
				require.Error(err)
				return
			}
			require.NoError(err)
			require.Equal(tc.want, f)
		})
	}

	require.Equal("application/gpx+xml", FormatGPX.ContentType())
	require.Equal(".kml", FormatKML.Extension())
	require.Error(Encode(&bytes.Buffer{}, testJourney(), Format("csv")))
}

func TestEncodeJSON(t *testing.T) {
	require := require.New(t)
	var buf bytes.Buffer
	require.NoError(Encode(&buf, testJourney(), FormatJSON))

	var doc struct {
		Journey tracking.Journey `json:"journey"`
		Summary tracking.Summary `json:"summary"`
	}
	require.NoError(json.Unmarshal(buf.Bytes(), &doc))
	require.Equal("j-42", doc.Journey.ID)
	require.Len(doc.Journey.Segments, 2)
	require.Equal(3, doc.Summary.PointCount)
	require.Equal([]string{"France"}, doc.Summary.Countries)
}

func TestGPXRoundTrip(t *testing.T) {
	require := require.New(t)
	j := testJourney()

	var buf bytes.Buffer
	require.NoError(Encode(&buf, j, FormatGPX))
	require.Contains(buf.String(), "<trkseg>")

	track, err := ReadGPX(buf.Bytes())
	require.NoError(err)
	require.Equal("Dawn patrol", track.Name)
	require.Len(track.Segments, 2)
	require.Len(track.Segments[0], 2)
	require.Len(track.Segments[1], 1)

	first := track.Segments[0][0]
	require.InDelta(45.8326, first.Lat, 1e-9)
	require.InDelta(6.8652, first.Lng, 1e-9)
	require.InDelta(1035, first.AltitudeM, 1e-9)
	require.True(first.Timestamp.Equal(t0.Add(time.Minute)))
	require.Less(first.SpeedMps, 0.0)
}

func TestReadGPXSkipsUntimedPoints(t *testing.T) {
	require := require.New(t)
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>from file</name>
    <trkseg>
      <trkpt lat="10.0" lon="20.0"><time>2024-05-04T06:00:00Z</time></trkpt>
      <trkpt lat="10.1" lon="20.1"></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="10.2" lon="20.2"></trkpt>
    </trkseg>
  </trk>
</gpx>`

	track, err := ReadGPX([]byte(doc))
	require.NoError(err)
	require.Equal("from file", track.Name)
	require.Len(track.Segments, 1)
	require.Len(track.Segments[0], 1)
	require.Equal(0.0, track.Segments[0][0].AltitudeM)

	_, err = ReadGPX([]byte("not xml"))
	require.Error(err)
}

func TestEncodeKML(t *testing.T) {
	require := require.New(t)
	var buf bytes.Buffer
	require.NoError(Encode(&buf, testJourney(), FormatKML))
	require.True(strings.HasPrefix(buf.String(), "<?xml"))

	var doc kmlDocument
	require.NoError(xml.Unmarshal(buf.Bytes(), &doc))
	require.Equal("Dawn patrol", doc.Document.Name)
	require.Len(doc.Document.Placemarks, 3)

	seg := doc.Document.Placemarks[0]
	require.Equal("Segment 1", seg.Name)
	require.NotNil(seg.LineString)
	require.Equal("6.8652000,45.8326000,1035.0 6.8660000,45.8331000,1042.0", seg.LineString.Coordinates)
	require.Equal("2024-05-04T06:00:00Z", seg.TimeSpan.Begin)

	place := doc.Document.Placemarks[2]
	require.Equal("Chamonix", place.Name)
	require.NotNil(place.Point)
}
