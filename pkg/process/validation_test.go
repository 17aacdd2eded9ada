package process

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/unit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProcessSpec(t *testing.T) {
	absDir := "/opt/app"
	if runtime.GOOS == "windows" {
		absDir = "C:\\nginx"
	}

	tests := []struct {
		name      string
		spec      unit.ProcessSpec
		shouldErr bool
	}{
		{"valid", unit.ProcessSpec{Program: "nginx", Dir: absDir, Environment: []string{"A=1", "B="}}, false},
		{"missing program", unit.ProcessSpec{}, true},
		{"relative dir", unit.ProcessSpec{Program: "nginx", Dir: "html"}, true},
		{"env without equals", unit.ProcessSpec{Program: "nginx", Environment: []string{"A"}}, true},
		{"env without key", unit.ProcessSpec{Program: "nginx", Environment: []string{"=1"}}, true},
		{"missing program file is not checked", unit.ProcessSpec{Program: "/does/not/exist"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProcessSpec(tt.spec)
			if tt.shouldErr {
				assert.True(t, errors.IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckExecutable(t *testing.T) {
	dir := t.TempDir()

	err := CheckExecutable(unit.ProcessSpec{Program: filepath.Join(dir, "missing-binary")})
	assert.True(t, errors.IsNotFoundError(err))

	self, err := os.Executable()
	require.NoError(t, err)
	assert.NoError(t, CheckExecutable(unit.ProcessSpec{Program: self, Dir: dir}))

	err = CheckExecutable(unit.ProcessSpec{Program: self, Dir: filepath.Join(dir, "nope")})
	assert.True(t, errors.IsNotFoundError(err))
}

func TestResolveLaunchPaths(t *testing.T) {
	dir := t.TempDir()
	program := filepath.Join(dir, "bin", "worker")

	path, wd, err := resolveLaunchPaths(unit.ProcessSpec{Program: program})
	require.NoError(t, err)
	assert.Equal(t, program, path)
	assert.Equal(t, filepath.Join(dir, "bin"), wd)

	path, wd, err = resolveLaunchPaths(unit.ProcessSpec{Program: program, Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, program, path)
	assert.Equal(t, dir, wd)

	path, wd, err = resolveLaunchPaths(unit.ProcessSpec{Program: filepath.Join("bin", "worker"), Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, program, path)
	assert.Equal(t, dir, wd)

	path, wd, err = resolveLaunchPaths(unit.ProcessSpec{Program: "sleep"})
	require.NoError(t, err)
	assert.Equal(t, "sleep", path)
	assert.Equal(t, "", wd)
}

func TestResolveLaunchPaths_RelativeProgram(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	path, wd, err := resolveLaunchPaths(unit.ProcessSpec{Program: filepath.Join(".", "bin", "worker")})
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, filepath.Join(cwd, "bin", "worker"), path)
	assert.Equal(t, filepath.Join(cwd, "bin"), wd)
}
