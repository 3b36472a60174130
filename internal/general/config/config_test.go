package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Tracking.TickInterval)
	assert.Equal(t, 2*time.Second, cfg.Tracking.DebounceWindow)
	assert.Equal(t, 3*time.Second, cfg.Tracking.NoticeTTL)
	assert.Equal(t, 60, cfg.Tracking.PathSteps)
	assert.Equal(t, 18.0, cfg.Tracking.CenterZoom)
	assert.Equal(t, RosterStatic, cfg.Roster.Source)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, "telemetry_fanout", cfg.RabbitMQ.Exchange)
	assert.Equal(t, 3010, cfg.Dashboard.Port)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tracking:
  tick_interval: 500ms
  path_steps: 30
roster:
  source: postgres
database:
  host: db
  user: fleet
  password: secret
  database: fleet
dashboard:
  port: 8088
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.Tracking.TickInterval)
	assert.Equal(t, 30, cfg.Tracking.PathSteps)
	assert.Equal(t, 2*time.Second, cfg.Tracking.DebounceWindow)
	assert.Equal(t, RosterPostgres, cfg.Roster.Source)
	assert.Equal(t, "fleet", cfg.Database.Name)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 8088, cfg.Dashboard.Port)

	sc := cfg.StoreConfig()
	assert.Equal(t, 500*time.Millisecond, sc.TickInterval)
	assert.Equal(t, 30, sc.PathSteps)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown roster source":     "roster:\n  source: csv\n",
		"postgres without database": "roster:\n  source: postgres\n",
		"export without user":       "rabbitmq:\n  enabled: true\n",
		"negative steps":            "tracking:\n  path_steps: -1\n",
		"port out of range":         "dashboard:\n  port: 70000\n",
		"malformed yaml":            "tracking: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}
