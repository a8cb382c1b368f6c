package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"backend-recordpath/internal/tracking"

	"github.com/google/subcommands"
)

type statsCmd struct {
	input    string
	pauseGap time.Duration
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "Print the summary a GPX track would record." }
func (*statsCmd) Usage() string {
	return `stats -input track.gpx
	Print distance, duration and bounds after filtering.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "input", "", "GPX file to summarize")
	f.DurationVar(&c.pauseGap, "pause-gap", 5*time.Minute, "treat gaps longer than this as a pause (0 disables)")
}

func (c *statsCmd) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	cfg := args[0].(tracking.Config)

	if c.input == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	track, err := readTrack(c.input)
	if err != nil {
		log.Printf("stats: read %s: %v", c.input, err)
		return subcommands.ExitFailure
	}
	journey, err := replayTrack(cfg, track, "", c.pauseGap)
	if err != nil {
		log.Printf("stats: %v", err)
		return subcommands.ExitFailure
	}
	printSummary(os.Stdout, journey.Summary())
	return subcommands.ExitSuccess
}

func printSummary(w io.Writer, s tracking.Summary) {
	fmt.Fprintf(w, "%s\n", s.Title)
	fmt.Fprintf(w, "  distance:  %s\n", tracking.FormatDistance(s.DistanceM))
	fmt.Fprintf(w, "  duration:  %s (moving %s)\n",
		tracking.FormatDuration(time.Duration(s.DurationSec)*time.Second),
		tracking.FormatDuration(time.Duration(s.MovingSec)*time.Second))
	fmt.Fprintf(w, "  segments:  %d\n", s.SegmentCount)
	fmt.Fprintf(w, "  points:    %d\n", s.PointCount)
	if s.PointCount > 0 {
		fmt.Fprintf(w, "  bounds:    %.5f,%.5f to %.5f,%.5f\n", s.Bounds.MinLat, s.Bounds.MinLng, s.Bounds.MaxLat, s.Bounds.MaxLng)
	}
	if len(s.Countries) > 0 {
		fmt.Fprintf(w, "  countries: %s\n", strings.Join(s.Countries, ", "))
	}
}
