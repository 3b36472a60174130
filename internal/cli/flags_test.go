package cli

import (
	"bytes"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimulatorFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f, err := ParseSimulatorFlags(nil, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, SimulatorFlags{ConfigPath: DefaultConfigPath}, f)
	})

	t.Run("unit and config", func(t *testing.T) {
		f, err := ParseSimulatorFlags([]string{"--config=deploy/fleet.yml", "--unit", " tractor-7 "}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, "deploy/fleet.yml", f.ConfigPath)
		assert.Equal(t, "tractor-7", f.UnitID)
	})

	cases := []struct {
		name string
		args []string
		want error
	}{
		{"unit with spaces", []string{"--unit=john deere"}, ErrBadUnitID},
		{"unit with slash", []string{"--unit=../2"}, ErrBadUnitID},
		{"config not yaml", []string{"--config=config.json"}, ErrBadConfigPath},
		{"stray argument", []string{"--unit=2", "extra"}, ErrExtraArgs},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSimulatorFlags(tc.args, &bytes.Buffer{})
			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("help", func(t *testing.T) {
		var out bytes.Buffer
		_, err := ParseSimulatorFlags([]string{"-h"}, &out)
		assert.ErrorIs(t, err, flag.ErrHelp)
		assert.Contains(t, out.String(), "--mode=simulator")
		assert.Contains(t, out.String(), "-unit")
	})
}

func TestParseDashboardFlags(t *testing.T) {
	f, err := ParseDashboardFlags([]string{"--max-concurrent=8"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, DashboardFlags{ConfigPath: DefaultConfigPath, MaxConcurrent: 8}, f)

	_, err = ParseDashboardFlags([]string{"--max-concurrent=-1"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrBadMaxConc)

	_, err = ParseDashboardFlags([]string{"--config="}, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrBadConfigPath)

	_, err = ParseDashboardFlags([]string{"--unit=2"}, &bytes.Buffer{})
	assert.Error(t, err)
}
