package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Run      *RunCommand
	Sessions *SessionsCommand
	Bookings *BookingsCommand
	Status   *StatusCommand
	Serve    *ServeCommand
	Prune    *PruneCommand
	Purge    *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "rankprep"
	parser.LongDescription = "Prepare hotel ranking training data: search sessions, detail views and enriched bookings for one venue."

	cmds := &commands{
		Run:      &RunCommand{globals: &globals, version: version},
		Sessions: &SessionsCommand{globals: &globals, version: version},
		Bookings: &BookingsCommand{globals: &globals, version: version},
		Status:   &StatusCommand{globals: &globals, version: version},
		Serve:    &ServeCommand{globals: &globals, version: version},
		Prune:    &PruneCommand{globals: &globals, version: version},
		Purge:    &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("run", "Build sessions and enrich bookings", "Project the raw logs of one venue and day window, build search sessions, enrich bookings and store the result as a run.", cmds.Run)
	parser.AddCommand("sessions", "List the sessions of a run", "List the search sessions stored by a run (the latest run by default).", cmds.Sessions)
	parser.AddCommand("bookings", "List the enriched bookings of a run", "List the enriched bookings stored by a run (the latest run by default).", cmds.Bookings)
	parser.AddCommand("status", "Show database statistics", "Show database statistics, recent runs and configuration summary.", cmds.Status)
	parser.AddCommand("serve", "Serve runs over HTTP", "Serve stored runs, sessions and bookings as a read-only JSON API.", cmds.Serve)
	parser.AddCommand("prune", "Delete old runs", "Delete runs older than a retention period, with their derived rows.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL rankprep data", "Delete ALL rankprep data. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the rankprep CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// --version is valid without a subcommand.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("rankprep %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
