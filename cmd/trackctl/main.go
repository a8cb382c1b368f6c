// Command trackctl replays recorded GPX tracks through the recording engine
// offline, producing the same journeys and exports the API would.
package main

import (
	"context"
	"flag"
	"os"

	"backend-recordpath/internal/config"
	"backend-recordpath/internal/tracking"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&replayCmd{}, "")
	subcommands.Register(&statsCmd{}, "")

	cfg := tracking.ConfigFrom(config.Load())

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background(), cfg)))
}
