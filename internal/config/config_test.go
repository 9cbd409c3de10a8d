package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:5000", cfg.Addr())
	require.Equal(t, "data/tasks.json", cfg.Paths.TasksFile)
	require.Equal(t, "data/progress", cfg.Paths.ProgressDir)
	require.Equal(t, "F3_K11_8F_3800H", cfg.TaskRules.StartMarker)
	require.Equal(t, "F1_K22_9F_4730H", cfg.TaskRules.EndMarker)
	require.False(t, cfg.LDAP.Enabled)
	require.Equal(t, 2*time.Hour, cfg.SessionTimeout())
	require.Equal(t, 5*time.Minute, cfg.SessionWarning())
	require.Equal(t, 5*time.Minute, cfg.SweepInterval())
	require.Equal(t, 10*time.Second, cfg.LDAPTimeout())
	require.True(t, cfg.Logging.Development)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  host: 127.0.0.1
  port: 8080
task_rules:
  start_marker: START_A
  end_marker: END_A
ldap:
  enabled: true
  url: ldap://dc.example.com:389
  domain: EXAMPLE
session:
  timeout_minutes: 30
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8080", cfg.Addr())
	require.Equal(t, "START_A", cfg.TaskRules.StartMarker)
	require.Equal(t, "END_A", cfg.TaskRules.EndMarker)
	// Untouched keys keep their defaults.
	require.Equal(t, "F3_K11_8F_3390", cfg.WIPRules.StartMarker)
	require.True(t, cfg.LDAP.Enabled)
	require.Equal(t, "EXAMPLE", cfg.LDAP.Domain)
	require.Equal(t, 30*time.Minute, cfg.SessionTimeout())
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Server:    ServerConfig{Port: 5000},
		TaskRules: RulesConfig{StartMarker: "A", EndMarker: "B"},
		WIPRules:  RulesConfig{StartMarker: "C", EndMarker: "D"},
		Session:   SessionConfig{TimeoutMinutes: 120},
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"missing task marker", func(c *Config) { c.TaskRules.EndMarker = "" }},
		{"equal wip markers", func(c *Config) { c.WIPRules.EndMarker = "C" }},
		{"ldap enabled without url", func(c *Config) { c.LDAP.Enabled = true }},
		{"zero session timeout", func(c *Config) { c.Session.TimeoutMinutes = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
