package export

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"backend-recordpath/internal/tracking"
)

const kmlNamespace = "http://www.opengis.net/kml/2.2"

type kmlDocument struct {
	XMLName  xml.Name  `xml:"kml"`
	Xmlns    string    `xml:"xmlns,attr"`
	Document kmlFolder `xml:"Document"`
}

type kmlFolder struct {
	Name        string         `xml:"name"`
	Description string         `xml:"description,omitempty"`
	Placemarks  []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name       string         `xml:"name"`
	TimeSpan   *kmlTimeSpan   `xml:"TimeSpan,omitempty"`
	LineString *kmlLineString `xml:"LineString,omitempty"`
	Point      *kmlPoint      `xml:"Point,omitempty"`
}

type kmlTimeSpan struct {
	Begin string `xml:"begin"`
	End   string `xml:"end"`
}

type kmlLineString struct {
	Tessellate  int    `xml:"tessellate"`
	Coordinates string `xml:"coordinates"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

const kmlTime = "2006-01-02T15:04:05Z07:00"

// EncodeKML writes one LineString placemark per segment and one point
// placemark per resolved place.
func EncodeKML(w io.Writer, j tracking.Journey) error {
	doc := kmlDocument{
		Xmlns: kmlNamespace,
		Document: kmlFolder{
			Name:        j.Title,
			Description: j.Notes,
		},
	}
	for i, s := range j.Segments {
		var coords []string
		for _, p := range s.Points {
			coords = append(coords, kmlCoordinate(p.Lng, p.Lat, p.AltitudeM))
		}
		doc.Document.Placemarks = append(doc.Document.Placemarks, kmlPlacemark{
			Name: "Segment " + strconv.Itoa(i+1),
			TimeSpan: &kmlTimeSpan{
				Begin: s.StartTime.UTC().Format(kmlTime),
				End:   s.EndTime.UTC().Format(kmlTime),
			},
			LineString: &kmlLineString{Tessellate: 1, Coordinates: strings.Join(coords, " ")},
		})
	}
	for _, p := range j.Places {
		doc.Document.Placemarks = append(doc.Document.Placemarks, kmlPlacemark{
			Name:  p.Name,
			Point: &kmlPoint{Coordinates: kmlCoordinate(p.Lng, p.Lat, 0)},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Flush()
}

// KML orders coordinates lng,lat,alt.
func kmlCoordinate(lng, lat, alt float64) string {
	return strconv.FormatFloat(lng, 'f', 7, 64) + "," +
		strconv.FormatFloat(lat, 'f', 7, 64) + "," +
		strconv.FormatFloat(alt, 'f', 1, 64)
}
