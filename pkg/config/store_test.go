package config

import (
	"os"
	"testing"

	"github.com/core-tools/hsu-keeper/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetUnitEnabled_YAML(t *testing.T) {
	path := writeConfig(t, "keeper.yaml", `# keeper units
units:
  - id: nginx # web front
    process:
      program: nginx
  - id: mysql
    enabled: true
    service:
      name: MySQL
`)

	require.NoError(t, SetUnitEnabled(path, "mysql", false))
	require.NoError(t, SetUnitEnabled(path, "nginx", false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# keeper units")
	assert.Contains(t, string(data), "# web front")

	c, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.False(t, c.Units[0].IsEnabled())
	assert.False(t, c.Units[1].IsEnabled())

	require.NoError(t, SetUnitEnabled(path, "mysql", true))
	c, err = LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.True(t, c.Units[1].IsEnabled())

	err = SetUnitEnabled(path, "redis", true)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestSetUnitEnabled_TOML(t *testing.T) {
	path := writeConfig(t, "keeper.toml", `
[keeper]
poll_interval = "200ms"

[[units]]
id = "nginx"
kind = "process"

[units.process]
program = "nginx"
`)

	require.NoError(t, SetUnitEnabled(path, "nginx", false))

	c, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	require.Len(t, c.Units, 1)
	assert.False(t, c.Units[0].IsEnabled())
	assert.Equal(t, "nginx", c.Units[0].Process.Program)
	assert.Equal(t, "200ms", c.Keeper.PollInterval.String())

	assert.True(t, errors.IsNotFoundError(SetUnitEnabled(path, "php", false)))
}

func TestSetUnitEnabled_LegacyJSON(t *testing.T) {
	path := writeConfig(t, "servicers.json", `[
  {"program": "C:/nginx/nginx.exe", "cwd": "C:/nginx", "state": "Enabled"},
  {"program": "C:/php/php-cgi.exe", "cwd": "C:/nginx/html"}
]`)

	require.NoError(t, SetUnitEnabled(path, "php-cgi", true))
	require.NoError(t, SetUnitEnabled(path, "nginx", false))

	c, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.False(t, c.Units[0].IsEnabled())
	assert.True(t, c.Units[1].IsEnabled())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"Enabled"`)

	assert.True(t, errors.IsNotFoundError(SetUnitEnabled(path, "redis", false)))
}
