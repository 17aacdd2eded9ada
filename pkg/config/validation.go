package config

import (
	"fmt"
	"path/filepath"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/logcollection"
	"github.com/core-tools/hsu-keeper/pkg/process"
	"github.com/core-tools/hsu-keeper/pkg/unit"
)

// ValidateConfig validates the entire configuration structure
func ValidateConfig(config *KeeperConfig) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	if err := validateKeeperOptions(&config.Keeper); err != nil {
		return errors.NewValidationError("invalid keeper configuration", err)
	}

	if err := validateUnitsConfig(config.Units); err != nil {
		return errors.NewValidationError("invalid units configuration", err)
	}

	return nil
}

func validateKeeperOptions(options *KeeperOptions) error {
	if options.PollInterval < 0 {
		return errors.NewValidationError("poll interval cannot be negative", nil)
	}
	if options.StopWaitHint < 0 {
		return errors.NewValidationError("stop wait hint cannot be negative", nil)
	}

	if options.LogLevel != "" {
		if _, ok := logcollection.ParseLogLevel(options.LogLevel); !ok {
			return errors.NewValidationError(fmt.Sprintf("invalid log level: %s", options.LogLevel), nil).
				WithContext("valid_levels", "debug, info, warn, error")
		}
	}

	switch options.LogFormat {
	case "", "json", "console":
	default:
		return errors.NewValidationError(fmt.Sprintf("invalid log format: %s", options.LogFormat), nil).
			WithContext("valid_formats", "json, console")
	}

	if options.ControlPort < 0 || options.ControlPort > 65535 {
		return errors.NewValidationError(fmt.Sprintf("invalid control port: %d", options.ControlPort), nil).
			WithContext("valid_range", "0-65535")
	}

	if options.PIDDirectory != "" && !filepath.IsAbs(options.PIDDirectory) {
		return errors.NewValidationError("PID directory must be absolute path", nil).WithContext("pid_directory", options.PIDDirectory)
	}

	for i, hook := range options.StopHooks {
		if err := process.ValidateProcessSpec(unit.ProcessSpec{Program: hook.Program, Args: hook.Args, Dir: hook.Dir}); err != nil {
			return errors.NewValidationError(fmt.Sprintf("invalid stop hook at index %d", i), err)
		}
	}

	return nil
}

func validateUnitsConfig(units []UnitConfig) error {
	if len(units) == 0 {
		return nil // Allow empty units list
	}

	seenIDs := make(map[string]int)
	for i, u := range units {
		if err := unit.ValidateID(u.ID); err != nil {
			return errors.NewValidationError(fmt.Sprintf("invalid unit ID at index %d", i), err).WithContext("unit", u.ID)
		}

		if prevIndex, exists := seenIDs[u.ID]; exists {
			return errors.NewValidationError(
				fmt.Sprintf("duplicate unit ID '%s' found at indices %d and %d", u.ID, prevIndex, i),
				nil,
			)
		}
		seenIDs[u.ID] = i

		if err := unit.ValidateDescriptor(u.Descriptor(nil)); err != nil {
			return errors.NewValidationError(fmt.Sprintf("invalid unit at index %d", i), err).WithContext("unit", u.ID)
		}

		if u.Process != nil {
			spec := unit.ProcessSpec{Program: u.Process.Program, Args: u.Process.Args, Dir: u.Process.Dir, Environment: u.Process.Env}
			if err := process.ValidateProcessSpec(spec); err != nil {
				return errors.NewValidationError(fmt.Sprintf("invalid process configuration at index %d", i), err).WithContext("unit", u.ID)
			}
		}
	}

	return nil
}

// CheckUnits reports units whose program or working directory does not exist
// right now. These are not fatal: the keeper keeps retrying them.
func CheckUnits(descriptors []unit.Descriptor) []error {
	var problems []error
	for _, d := range descriptors {
		if d.Kind != unit.KindProcess || d.Process == nil {
			continue
		}
		if err := process.CheckExecutable(*d.Process); err != nil {
			problems = append(problems, errors.NewValidationError("unit is not startable", err).WithContext("unit", d.ID))
		}
	}
	return problems
}

// ValidateConfigFile validates a configuration file without loading/running
// This is useful for configuration testing and CI/CD validation
func ValidateConfigFile(configFile string) error {
	_, _, err := Load(configFile)
	return err
}
