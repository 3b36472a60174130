package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeSimulator = "simulator"
	ModeDashboard = "dashboard-service"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeSimulator, "sim", "s":
		return ModeSimulator, true
	case ModeDashboard, "dashboard", "d":
		return ModeDashboard, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `simulator --unit=2`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := range args {
		arg := args[i]
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	if m, ok := isKnownMode(mode); ok {
		mode = m
	}

	return mode, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./fleet-tracker --mode=<mode> [flags]

Modes:
  simulator             Track one unit headlessly until its path is replayed
  dashboard-service     HTTP API and live websocket view over the tracking core

Examples:
  ./fleet-tracker --mode=simulator --unit=2
  ./fleet-tracker --mode=dashboard-service --config=config.yaml --max-concurrent=64`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./fleet-tracker --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
