package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_MissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAddress, cfg.Server.Address)
	assert.Equal(t, "csv", cfg.Store.Driver)
	assert.Equal(t, DefaultCSVPath, cfg.Store.Path)
	assert.Equal(t, 24, cfg.Dashboard.RecordsPerAnalysis)
	assert.Equal(t, 10*time.Second, cfg.Dashboard.AutoInterval)
	assert.Equal(t, 50, cfg.Dashboard.HighTrafficThreshold)
	assert.Equal(t, "memory", cfg.Session.Driver)
}

func TestLoadFile_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
token: secret
server:
  address: 0.0.0.0:9000
store:
  driver: sqlite
  dsn: traffic.db
dashboard:
  records_per_analysis: 12
  auto_interval: 30s
cron_jobs:
  - name: nightly
    schedule: "0 0 * * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 12, cfg.Dashboard.RecordsPerAnalysis)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.AutoInterval)
	require.Len(t, cfg.CronJobs, 1)
	assert.Equal(t, 1, cfg.CronJobs[0].Generate)
}

func TestLoadFile_HighTrafficThreshold(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"absent uses default", "dashboard:\n  records_per_analysis: 12\n", 50, false},
		{"zero is kept", "dashboard:\n  high_traffic_threshold: 0\n", 0, false},
		{"explicit value", "dashboard:\n  high_traffic_threshold: 120\n", 120, false},
		{"negative rejected", "dashboard:\n  high_traffic_threshold: -1\n", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			cfg, err := LoadFile(path)
			if tt.wantErr {
				assert.ErrorContains(t, err, "high_traffic_threshold")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Dashboard.HighTrafficThreshold)
		})
	}
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv("TRAFFIC_TOKEN", "from-env")
	t.Setenv("TRAFFIC_STORE_PATH", "/tmp/counts.csv")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, "/tmp/counts.csv", cfg.Store.Path)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	assert.NoError(t, cfg.Validate())

	cfg.Store.Driver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg.Store.DSN = "postgres://localhost/traffic"
	assert.NoError(t, cfg.Validate())

	cfg.Store.Driver = "mongo"
	assert.EqualError(t, cfg.Validate(), "config: unsupported store driver: mongo")

	cfg.Store.Driver = "csv"
	cfg.Session.Driver = "redis"
	assert.Error(t, cfg.Validate())
}
