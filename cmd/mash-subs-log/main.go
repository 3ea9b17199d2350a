// Command mash-subs-log is a tool for viewing and analyzing subscription
// lifecycle log files.
//
// Log files are written by the event log configured in the event_log section
// of the configuration, for example by mash-subs-soak.
//
// Usage:
//
//	mash-subs-log <command> [flags] <file.slog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSONL or CSV format
//	filter   Filter log file and write to new file
//	stats    Show session statistics and undisposed sessions
//
// Examples:
//
//	# View all events of one subscription
//	mash-subs-log view --sub-id temp soak.slog
//
//	# View only dispose failures
//	mash-subs-log view --category error soak.slog
//
//	# Export registry teardowns to CSV
//	mash-subs-log export --format csv --entity registry soak.slog
//
//	# Filter by connection and save to new file
//	mash-subs-log filter --conn-id abc12345-... -o conn.slog soak.slog
//
//	# Show statistics
//	mash-subs-log stats soak.slog
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mash-protocol/mash-subs/cmd/mash-subs-log/commands"
)

const usage = `mash-subs-log - Subscription Lifecycle Log Analyzer

Usage:
  mash-subs-log <command> [flags] <file.slog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSONL or CSV format
  filter   Filter log file and write to new file
  stats    Show session statistics and undisposed sessions

Use "mash-subs-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// newFlagSet creates a flag set with the filter flags every command accepts.
func newFlagSet(name, synopsis, summary string) (*flag.FlagSet, *commands.FilterOptions) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "mash-subs-log %s - %s\n\nUsage:\n  mash-subs-log %s\n\nFlags:\n", name, summary, synopsis)
		fs.PrintDefaults()
	}

	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.ConnID, "conn-id", "", "Filter by connection ID")
	fs.StringVar(&opts.SubID, "sub-id", "", "Filter by subscription ID")
	fs.StringVar(&opts.Entity, "entity", "", "Filter by entity (connection, registry, session)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (state, error)")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	return fs, opts
}

// logPath parses args and returns the log file argument.
func logPath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs, opts := newFlagSet("view", "view [flags] <file.slog>", "View log file in human-readable format")
	path := logPath(fs, args)

	if err := commands.RunView(path, *opts, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs, opts := newFlagSet("export", "export [flags] <file.slog>", "Export log file to JSONL or CSV format")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path := logPath(fs, args)

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fail(fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		w = f
	}

	if err := commands.RunExport(path, *format, *opts, w); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs, opts := newFlagSet("filter", "filter [flags] -o <out.slog> <file.slog>", "Filter log file and write to new file")
	output := fs.String("o", "", "Output file (required)")
	path := logPath(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	count, err := commands.RunFilter(path, *output, *opts)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", count, *output)
}

func runStats(args []string) {
	fs, opts := newFlagSet("stats", "stats [flags] <file.slog>", "Show session statistics and undisposed sessions")
	path := logPath(fs, args)

	if err := commands.RunStats(path, *opts, os.Stdout); err != nil {
		fail(err)
	}
}
