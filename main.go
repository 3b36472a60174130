package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	dashboardservice "fleet-tracker/cmd/dashboard_service"
	"fleet-tracker/cmd/simulator"
	"fleet-tracker/internal/cli"
)

func main() {
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	mode, modeArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch mode {
	case cli.ModeSimulator:
		f, err := cli.ParseSimulatorFlags(modeArgs, os.Stderr)
		exitOnFlagError(err)

		if err := simulator.Run(ctx, f.ConfigPath, f.UnitID); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeDashboard:
		f, err := cli.ParseDashboardFlags(modeArgs, os.Stderr)
		exitOnFlagError(err)

		if err := dashboardservice.Run(ctx, f.ConfigPath, f.MaxConcurrent); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	default:
		// ParseMode accepts unknown values given through --mode=
		fmt.Fprintln(os.Stderr, "Error: unknown mode", mode)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// let deferred logs flush on very fast exits
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}

func exitOnFlagError(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(2)
}
