package config

import (
	"time"

	"github.com/core-tools/hsu-keeper/pkg/unit"
)

// KeeperConfig represents the top-level configuration file structure
type KeeperConfig struct {
	Keeper KeeperOptions `yaml:"keeper" toml:"keeper"`
	Units  []UnitConfig  `yaml:"units" toml:"units"`
}

// KeeperOptions represents keeper-level configuration
type KeeperOptions struct {
	PollInterval time.Duration `yaml:"poll_interval,omitempty" toml:"poll_interval,omitempty"`
	StopWaitHint time.Duration `yaml:"stop_wait_hint,omitempty" toml:"stop_wait_hint,omitempty"`
	LogLevel     string        `yaml:"log_level,omitempty" toml:"log_level,omitempty"`
	LogFormat    string        `yaml:"log_format,omitempty" toml:"log_format,omitempty"`
	LogFile      string        `yaml:"log_file,omitempty" toml:"log_file,omitempty"`
	ControlPort  int           `yaml:"control_port,omitempty" toml:"control_port,omitempty"`
	PIDDirectory string        `yaml:"pid_directory,omitempty" toml:"pid_directory,omitempty"`
	EnvFile      string        `yaml:"env_file,omitempty" toml:"env_file,omitempty"`
	StopHooks    []HookConfig  `yaml:"stop_hooks,omitempty" toml:"stop_hooks,omitempty"`
}

// HookConfig is a command run once, without waiting, when a stop is requested.
type HookConfig struct {
	Program string   `yaml:"program" toml:"program"`
	Args    []string `yaml:"args,omitempty" toml:"args,omitempty"`
	Dir     string   `yaml:"dir,omitempty" toml:"dir,omitempty"`
}

// UnitConfig represents a single unit configuration
type UnitConfig struct {
	ID      string         `yaml:"id" toml:"id"`
	Kind    unit.Kind      `yaml:"kind" toml:"kind"`
	Enabled *bool          `yaml:"enabled,omitempty" toml:"enabled,omitempty"` // Pointer to distinguish unset from false
	Process *ProcessConfig `yaml:"process,omitempty" toml:"process,omitempty"`
	Service *ServiceConfig `yaml:"service,omitempty" toml:"service,omitempty"`
	Restart *RestartConfig `yaml:"restart,omitempty" toml:"restart,omitempty"`
}

type ProcessConfig struct {
	Program string   `yaml:"program" toml:"program"`
	Args    []string `yaml:"args,omitempty" toml:"args,omitempty"`
	Dir     string   `yaml:"dir,omitempty" toml:"dir,omitempty"`
	Env     []string `yaml:"env,omitempty" toml:"env,omitempty"`
	EnvFile string   `yaml:"env_file,omitempty" toml:"env_file,omitempty"`
}

type ServiceConfig struct {
	Name string `yaml:"name" toml:"name"`
}

// RestartConfig is opt-in: without it a unit is restarted at the next cycle.
type RestartConfig struct {
	Backoff BackoffConfig `yaml:"backoff" toml:"backoff"`
}

type BackoffConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay" toml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay,omitempty" toml:"max_delay,omitempty"`
	BackoffRate  float64       `yaml:"backoff_rate,omitempty" toml:"backoff_rate,omitempty"`
}

// IsEnabled treats an unset flag as enabled.
func (u UnitConfig) IsEnabled() bool {
	return u.Enabled == nil || *u.Enabled
}

// Descriptor converts the unit configuration into its immutable runtime form.
// env holds the already resolved environment for process units.
func (u UnitConfig) Descriptor(env []string) unit.Descriptor {
	d := unit.Descriptor{
		ID:      u.ID,
		Kind:    u.Kind,
		Enabled: u.IsEnabled(),
	}
	if u.Process != nil {
		d.Process = &unit.ProcessSpec{
			Program:     u.Process.Program,
			Args:        append([]string(nil), u.Process.Args...),
			Dir:         u.Process.Dir,
			Environment: env,
		}
	}
	if u.Service != nil {
		d.Service = &unit.ServiceSpec{Name: u.Service.Name}
	}
	if u.Restart != nil {
		d.Backoff = unit.BackoffConfig{
			InitialDelay: u.Restart.Backoff.InitialDelay,
			MaxDelay:     u.Restart.Backoff.MaxDelay,
			BackoffRate:  u.Restart.Backoff.BackoffRate,
		}
	}
	return d
}

// setConfigDefaults applies default values to configuration
func setConfigDefaults(config *KeeperConfig) {
	if config.Keeper.PollInterval == 0 {
		config.Keeper.PollInterval = 100 * time.Millisecond
	}
	if config.Keeper.StopWaitHint == 0 {
		config.Keeper.StopWaitHint = 5 * time.Second
	}
	if config.Keeper.LogLevel == "" {
		config.Keeper.LogLevel = "info"
	}

	for i := range config.Units {
		u := &config.Units[i]

		// Default enabled to true if not specified
		if u.Enabled == nil {
			enabled := true
			u.Enabled = &enabled
		}

		if u.Kind == "" {
			switch {
			case u.Process != nil && u.Service == nil:
				u.Kind = unit.KindProcess
			case u.Service != nil && u.Process == nil:
				u.Kind = unit.KindService
			}
		}
	}
}
