package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"backend-recordpath/internal/export"
	"backend-recordpath/internal/location"
	"backend-recordpath/internal/shared/geo"
	"backend-recordpath/internal/tracking"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 7, 14, 6, 30, 0, 0, time.UTC)

func walk(from int, n int, at time.Time, every time.Duration) []location.Sample {
	samples := make([]location.Sample, n)
	for i := range samples {
		meters := float64(from+i) * 20
		s := location.Sample{Timestamp: at.Add(time.Duration(i) * every), SpeedMps: -1}
		s.Lat = 46.5 + meters/geo.EarthRadiusM*180/math.Pi
		s.Lng = 7.9
		samples[i] = s
	}
	return samples
}

func TestReplayTrack(t *testing.T) {
	tests := map[string]struct {
		track        export.Track
		pauseGap     time.Duration
		wantSegments int
		wantPoints   int
	}{
		"continuous": {
			track:        export.Track{Name: "ridge", Segments: [][]location.Sample{walk(0, 5, start, 15*time.Second)}},
			pauseGap:     5 * time.Minute,
			wantSegments: 1,
			wantPoints:   5,
		},
		"gap_becomes_pause": {
			track: export.Track{Name: "ridge", Segments: [][]location.Sample{
				append(walk(0, 4, start, 15*time.Second), walk(4, 3, start.Add(15*time.Minute), 15*time.Second)...),
			}},
			pauseGap:     5 * time.Minute,
			wantSegments: 2,
			wantPoints:   7,
		},
		"gap_ignored_when_disabled": {
			track: export.Track{Name: "ridge", Segments: [][]location.Sample{
				append(walk(0, 4, start, 15*time.Second), walk(4, 3, start.Add(15*time.Minute), 15*time.Second)...),
			}},
			wantSegments: 1,
			wantPoints:   7,
		},
		"track_segments": {
			track: export.Track{Name: "ridge", Segments: [][]location.Sample{
				walk(0, 3, start, 15*time.Second),
				walk(3, 3, start.Add(2*time.Minute), 15*time.Second),
			}},
			pauseGap:     5 * time.Minute,
			wantSegments: 2,
			wantPoints:   6,
		},
		"filtered_points": {
			track:        export.Track{Name: "ridge", Segments: [][]location.Sample{walk(0, 6, start, 5*time.Second)}},
			wantSegments: 1,
			wantPoints:   3,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)
			j, err := replayTrack(tracking.DefaultConfig(), tc.track, "", tc.pauseGap)
			r.NoError(err)
			r.Equal("ridge", j.Title)
			r.Len(j.Segments, tc.wantSegments)
			r.Equal(tc.wantPoints, j.PointCount())
			r.Equal(start, j.StartDate)
			r.False(j.EndDate.Before(j.StartDate))
		})
	}
}

func TestReplayTrackEmpty(t *testing.T) {
	_, err := replayTrack(tracking.DefaultConfig(), export.Track{}, "", 0)
	require.ErrorIs(t, err, errEmptyTrack)
}

func writeGPX(t *testing.T, segments ...[]location.Sample) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
<trk><name>Morning loop</name>`)
	for _, seg := range segments {
		b.WriteString("<trkseg>")
		for _, s := range seg {
			fmt.Fprintf(&b, `<trkpt lat="%.7f" lon="%.7f"><ele>1200</ele><time>%s</time></trkpt>`,
				s.Lat, s.Lng, s.Timestamp.Format(time.RFC3339))
		}
		b.WriteString("</trkseg>")
	}
	b.WriteString("</trk></gpx>")

	path := filepath.Join(t.TempDir(), "track.gpx")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestReplayCommandWritesExport(t *testing.T) {
	r := require.New(t)
	input := writeGPX(t, walk(0, 4, start, 15*time.Second), walk(4, 2, start.Add(time.Minute*10), 15*time.Second))
	output := filepath.Join(t.TempDir(), "journey.json")

	cmd := &replayCmd{input: input, output: output, format: "json", pauseGap: 5 * time.Minute}
	status := cmd.Execute(context.Background(), flag.NewFlagSet("replay", flag.ContinueOnError), tracking.DefaultConfig())
	r.Equal(subcommands.ExitSuccess, status)

	data, err := os.ReadFile(output)
	r.NoError(err)
	var doc struct {
		Journey tracking.Journey `json:"journey"`
		Summary tracking.Summary `json:"summary"`
	}
	r.NoError(json.Unmarshal(data, &doc))
	r.Equal("Morning loop", doc.Journey.Title)
	r.Equal(2, doc.Summary.SegmentCount)
	r.Equal(6, doc.Summary.PointCount)
	r.InDelta(1200, doc.Journey.Segments[0].Points[0].AltitudeM, 1e-9)
}

func TestReplayCommandUsageErrors(t *testing.T) {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})

	status := (&replayCmd{}).Execute(context.Background(), fs, tracking.DefaultConfig())
	require.Equal(t, subcommands.ExitUsageError, status)

	status = (&replayCmd{input: "x.gpx", format: "shp"}).Execute(context.Background(), fs, tracking.DefaultConfig())
	require.Equal(t, subcommands.ExitUsageError, status)

	status = (&replayCmd{input: filepath.Join(t.TempDir(), "missing.gpx"), format: "gpx"}).Execute(context.Background(), fs, tracking.DefaultConfig())
	require.Equal(t, subcommands.ExitFailure, status)
}

func TestPrintSummary(t *testing.T) {
	j, err := replayTrack(tracking.DefaultConfig(), export.Track{
		Name:     "ridge",
		Segments: [][]location.Sample{walk(0, 5, start, 15*time.Second)},
	}, "", 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	printSummary(&buf, j.Summary())
	out := buf.String()
	require.Contains(t, out, "ridge")
	require.Contains(t, out, "distance:  80 m")
	require.Contains(t, out, "points:    5")
	require.Contains(t, out, "bounds:")
}
