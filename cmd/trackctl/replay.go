package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"backend-recordpath/internal/export"
	"backend-recordpath/internal/location"
	"backend-recordpath/internal/tracking"

	"github.com/google/subcommands"
)

var errEmptyTrack = errors.New("track has no timed points")

// replayTrack drives an engine with the track's own timestamps. Track
// segments and gaps longer than pauseGap become pause/resume pairs.
func replayTrack(cfg tracking.Config, track export.Track, title string, pauseGap time.Duration) (tracking.Journey, error) {
	if len(track.Segments) == 0 {
		return tracking.Journey{}, errEmptyTrack
	}
	if title == "" {
		title = track.Name
	}

	now := track.Segments[0][0].Timestamp
	engine := tracking.NewEngine(cfg,
		tracking.WithClock(func() time.Time { return now }),
		tracking.WithPermission(location.PermissionAuthorized),
	)
	defer engine.Close()

	if _, err := engine.Start(title); err != nil {
		return tracking.Journey{}, err
	}

	var last time.Time
	gap := func(at time.Time) error {
		now = last
		if err := engine.Pause(); err != nil {
			return err
		}
		now = at
		return engine.Resume()
	}

	for i, seg := range track.Segments {
		for j, s := range seg {
			switch {
			case i > 0 && j == 0:
				if err := gap(s.Timestamp); err != nil {
					return tracking.Journey{}, err
				}
			case pauseGap > 0 && !last.IsZero() && s.Timestamp.Sub(last) > pauseGap:
				if err := gap(s.Timestamp); err != nil {
					return tracking.Journey{}, err
				}
			}
			if s.Timestamp.After(now) {
				now = s.Timestamp
			}
			if _, _, err := engine.Update(s); err != nil {
				return tracking.Journey{}, err
			}
			if s.Timestamp.After(last) {
				last = s.Timestamp
			}
		}
	}

	now = last
	return engine.Stop()
}

func readTrack(path string) (export.Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return export.Track{}, err
	}
	return export.ReadGPX(data)
}

type replayCmd struct {
	input    string
	output   string
	format   string
	title    string
	pauseGap time.Duration
}

func (*replayCmd) Name() string     { return "replay" }
func (*replayCmd) Synopsis() string { return "Replay a GPX track and export the recorded journey." }
func (*replayCmd) Usage() string {
	return `replay -input track.gpx [-format gpx|kml|json] [-output file]
	Feed every point of a GPX track through the recording filter and export the result.
`
}

func (c *replayCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "input", "", "GPX file to replay")
	f.StringVar(&c.output, "output", "", "output file (default stdout)")
	f.StringVar(&c.format, "format", "gpx", "export format (gpx, kml, json)")
	f.StringVar(&c.title, "title", "", "journey title (default track name)")
	f.DurationVar(&c.pauseGap, "pause-gap", 5*time.Minute, "treat gaps longer than this as a pause (0 disables)")
}

func (c *replayCmd) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	cfg := args[0].(tracking.Config)

	if c.input == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	format, err := export.ParseFormat(c.format)
	if err != nil {
		log.Printf("replay: %v", err)
		return subcommands.ExitUsageError
	}

	track, err := readTrack(c.input)
	if err != nil {
		log.Printf("replay: read %s: %v", c.input, err)
		return subcommands.ExitFailure
	}
	journey, err := replayTrack(cfg, track, c.title, c.pauseGap)
	if err != nil {
		log.Printf("replay: %v", err)
		return subcommands.ExitFailure
	}

	var w io.Writer = os.Stdout
	if c.output != "" {
		file, err := os.Create(c.output)
		if err != nil {
			log.Printf("replay: create %s: %v", c.output, err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		w = file
	}
	if err := export.Encode(w, journey, format); err != nil {
		log.Printf("replay: encode: %v", err)
		return subcommands.ExitFailure
	}
	if c.output != "" {
		fmt.Fprintf(os.Stderr, "wrote %s (%d points, %s)\n", c.output, journey.PointCount(), tracking.FormatDistance(journey.TotalDistance()))
	}
	return subcommands.ExitSuccess
}
