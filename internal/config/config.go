// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper. It is
// read once at process start; nothing is hot-reloaded.
type Config struct {
	Server    ServerConfig  `mapstructure:"server"`
	Paths     PathsConfig   `mapstructure:"paths"`
	TaskRules RulesConfig   `mapstructure:"task_rules"`
	WIPRules  RulesConfig   `mapstructure:"wip_rules"`
	LDAP      LDAPConfig    `mapstructure:"ldap"`
	Session   SessionConfig `mapstructure:"session"`
	Logging   LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// PathsConfig names the persisted files and directories.
type PathsConfig struct {
	TasksFile   string `mapstructure:"tasks_file"`
	WIPFile     string `mapstructure:"wip_file"`
	StatusFile  string `mapstructure:"status_file"`
	ProgressDir string `mapstructure:"progress_dir"`
}

// RulesConfig names the round boundary markers for one domain.
type RulesConfig struct {
	StartMarker string `mapstructure:"start_marker"`
	EndMarker   string `mapstructure:"end_marker"`
}

// LDAPConfig locates the directory service used for operator login.
type LDAPConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	URL            string `mapstructure:"url"`
	Domain         string `mapstructure:"domain"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SessionConfig tunes login session lifetimes and the expiry sweep.
type SessionConfig struct {
	TimeoutMinutes       int `mapstructure:"timeout_minutes"`
	WarningMinutes       int `mapstructure:"warning_minutes"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FLOORMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("paths.tasks_file", "data/tasks.json")
	v.SetDefault("paths.wip_file", "data/wip.json")
	v.SetDefault("paths.status_file", "data/status.json")
	v.SetDefault("paths.progress_dir", "data/progress")
	// Historic station ids for the K11/K22 line; every deployment overrides.
	v.SetDefault("task_rules.start_marker", "F3_K11_8F_3800H")
	v.SetDefault("task_rules.end_marker", "F1_K22_9F_4730H")
	v.SetDefault("wip_rules.start_marker", "F3_K11_8F_3390")
	v.SetDefault("wip_rules.end_marker", "F3_K11_19F_3260")
	v.SetDefault("ldap.enabled", false)
	v.SetDefault("ldap.timeout_seconds", 10)
	v.SetDefault("session.timeout_minutes", 120)
	v.SetDefault("session.warning_minutes", 5)
	v.SetDefault("session.sweep_interval_seconds", 300)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	for name, rules := range map[string]RulesConfig{
		"task_rules": c.TaskRules,
		"wip_rules":  c.WIPRules,
	} {
		if rules.StartMarker == "" || rules.EndMarker == "" {
			return fmt.Errorf("%s markers must be set", name)
		}
		if rules.StartMarker == rules.EndMarker {
			return fmt.Errorf("%s start and end markers must differ", name)
		}
	}
	if c.LDAP.Enabled && c.LDAP.URL == "" {
		return fmt.Errorf("ldap.url must be set when ldap is enabled")
	}
	if c.Session.TimeoutMinutes <= 0 {
		return fmt.Errorf("session.timeout_minutes must be > 0")
	}
	return nil
}

// SessionTimeout converts the configured minutes to a duration.
func (c Config) SessionTimeout() time.Duration {
	return time.Duration(c.Session.TimeoutMinutes) * time.Minute
}

// SessionWarning converts the configured warning window to a duration.
func (c Config) SessionWarning() time.Duration {
	return time.Duration(c.Session.WarningMinutes) * time.Minute
}

// SweepInterval converts the configured sweep cadence to a duration.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.Session.SweepIntervalSeconds) * time.Second
}

// LDAPTimeout converts the configured dial timeout to a duration.
func (c Config) LDAPTimeout() time.Duration {
	return time.Duration(c.LDAP.TimeoutSeconds) * time.Second
}

// Addr joins the configured host and port for net/http.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
