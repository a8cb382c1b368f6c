// Package export renders finalized journeys as JSON, GPX or KML.
package export

import (
	"fmt"
	"io"
	"strings"

	"backend-recordpath/internal/tracking"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatGPX  Format = "gpx"
	FormatKML  Format = "kml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatGPX, FormatKML:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatGPX:
		return "application/gpx+xml"
	case FormatKML:
		return "application/vnd.google-earth.kml+xml"
	}
	return "application/json"
}

func (f Format) Extension() string {
	return "." + string(f)
}

// Encode writes j to w in format f.
func Encode(w io.Writer, j tracking.Journey, f Format) error {
	switch f {
	case FormatJSON:
		return EncodeJSON(w, j)
	case FormatGPX:
		return EncodeGPX(w, j)
	case FormatKML:
		return EncodeKML(w, j)
	}
	return fmt.Errorf("unknown export format %q", f)
}
