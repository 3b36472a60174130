package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultConfigPath is read when --config is not given.
const DefaultConfigPath = "config.yaml"

var (
	ErrBadConfigPath = errors.New("--config must name a .yaml or .yml file")
	ErrBadUnitID     = errors.New("--unit must be 1-64 letters, digits, '-' or '_'")
	ErrBadMaxConc    = errors.New("--max-concurrent must be >= 0")
	ErrExtraArgs     = errors.New("unexpected positional arguments")
)

// unit ids are roster primary keys: "1", "tractor-7", "JD_8R"
var unitIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// SimulatorFlags are the flags of the simulator mode.
type SimulatorFlags struct {
	ConfigPath string
	UnitID     string // empty picks the first requestable unit
}

// DashboardFlags are the flags of the dashboard-service mode.
type DashboardFlags struct {
	ConfigPath    string
	MaxConcurrent int // 0 keeps dashboard.max_concurrent from the config
}

// ParseSimulatorFlags parses and validates simulator flags. Help output and
// parse errors go to out; flag.ErrHelp is returned for -h.
func ParseSimulatorFlags(args []string, out io.Writer) (SimulatorFlags, error) {
	fs := flag.NewFlagSet(ModeSimulator, flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", DefaultConfigPath, "Path to the YAML config file")
	unitID := fs.String("unit", "", "Unit id to track (default: first available unit)")
	AttachUsage(fs, ModeSimulator)

	if err := parse(fs, args); err != nil {
		return SimulatorFlags{}, err
	}

	f := SimulatorFlags{
		ConfigPath: strings.TrimSpace(*configPath),
		UnitID:     strings.TrimSpace(*unitID),
	}
	if err := checkConfigPath(f.ConfigPath); err != nil {
		return SimulatorFlags{}, err
	}
	if f.UnitID != "" && !unitIDPattern.MatchString(f.UnitID) {
		return SimulatorFlags{}, fmt.Errorf("%w: %q", ErrBadUnitID, f.UnitID)
	}
	return f, nil
}

// ParseDashboardFlags parses and validates dashboard-service flags.
func ParseDashboardFlags(args []string, out io.Writer) (DashboardFlags, error) {
	fs := flag.NewFlagSet(ModeDashboard, flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", DefaultConfigPath, "Path to the YAML config file")
	maxConc := fs.Int("max-concurrent", 0, "Maximum number of concurrent HTTP requests (default: from config)")
	AttachUsage(fs, ModeDashboard)

	if err := parse(fs, args); err != nil {
		return DashboardFlags{}, err
	}

	f := DashboardFlags{
		ConfigPath:    strings.TrimSpace(*configPath),
		MaxConcurrent: *maxConc,
	}
	if err := checkConfigPath(f.ConfigPath); err != nil {
		return DashboardFlags{}, err
	}
	if f.MaxConcurrent < 0 {
		return DashboardFlags{}, fmt.Errorf("%w: got %d", ErrBadMaxConc, f.MaxConcurrent)
	}
	return f, nil
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: %s", ErrExtraArgs, strings.Join(fs.Args(), " "))
	}
	return nil
}

func checkConfigPath(p string) error {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrBadConfigPath, p)
}
