package cli

import (
	"bytes"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		name string
		args []string
		mode string
		rest []string
	}{
		{"flag", []string{"--mode=simulator", "--unit=2"}, ModeSimulator, []string{"--unit=2"}},
		{"subcommand", []string{"dashboard-service", "--max-concurrent=8"}, ModeDashboard, []string{"--max-concurrent=8"}},
		{"alias", []string{"--mode=sim"}, ModeSimulator, nil},
		{"short subcommand", []string{"d"}, ModeDashboard, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mode, rest, err := ParseMode(tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.mode, mode)
			assert.Equal(t, tc.rest, rest)
		})
	}

	_, _, err := ParseMode([]string{"--unit=2"})
	assert.Error(t, err)
}

func TestUsage(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	assert.Contains(t, buf.String(), "dashboard-service")

	fs := flag.NewFlagSet(ModeSimulator, flag.ContinueOnError)
	fs.SetOutput(&buf)
	fs.String("unit", "", "unit id")
	AttachUsage(fs, ModeSimulator)
	fs.Usage()
	assert.Contains(t, buf.String(), "--mode=simulator")
}
