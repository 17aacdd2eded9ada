package process

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/unit"
)

// ValidateProcessSpec validates the shape of a process spec. It does not touch the
// filesystem: a program that is missing today is retried at every supervision cycle.
func ValidateProcessSpec(spec unit.ProcessSpec) error {
	if spec.Program == "" {
		return errors.NewValidationError("program is required", nil)
	}

	if spec.Dir != "" && !filepath.IsAbs(spec.Dir) {
		return errors.NewValidationError("working directory must be absolute path", nil).WithContext("dir", spec.Dir)
	}

	for _, env := range spec.Environment {
		if !strings.Contains(env, "=") || strings.HasPrefix(env, "=") {
			return errors.NewValidationError("invalid environment variable format: "+env, nil)
		}
	}

	return nil
}

// CheckExecutable reports whether the program and working directory currently exist.
func CheckExecutable(spec unit.ProcessSpec) error {
	program, _, err := resolveLaunchPaths(spec)
	if err != nil {
		return err
	}
	if _, err := exec.LookPath(program); err != nil {
		return errors.NewNotFoundError("executable not found: "+spec.Program, err)
	}

	if spec.Dir != "" {
		if info, err := os.Stat(spec.Dir); err != nil {
			return errors.NewNotFoundError("working directory not accessible: "+spec.Dir, err)
		} else if !info.IsDir() {
			return errors.NewValidationError("working directory is not a directory: "+spec.Dir, nil)
		}
	}

	return nil
}

// resolveLaunchPaths returns the program path and working directory to spawn with.
// A program given by relative path is made absolute: against Dir when set, otherwise
// against the keeper's directory, which also becomes the default working directory.
// A bare command name stays as is and is looked up in PATH.
func resolveLaunchPaths(spec unit.ProcessSpec) (string, string, error) {
	if !strings.ContainsAny(spec.Program, `/\`) {
		return spec.Program, spec.Dir, nil
	}

	program := spec.Program
	if !filepath.IsAbs(program) {
		if spec.Dir != "" {
			program = filepath.Join(spec.Dir, program)
		} else {
			absPath, err := filepath.Abs(program)
			if err != nil {
				return "", "", errors.NewIOError("failed to get absolute path", err).WithContext("program", spec.Program)
			}
			program = absPath
		}
	}

	if spec.Dir != "" {
		return program, spec.Dir, nil
	}
	return program, filepath.Dir(program), nil
}
