package config

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/unit"
)

// LoadConfigFromFile loads keeper configuration, picking the format from the extension.
func LoadConfigFromFile(filename string) (*KeeperConfig, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	config, err := parse(format, data, filename)
	if err != nil {
		return nil, err
	}

	setConfigDefaults(config)
	return config, nil
}

func parse(format Format, data []byte, filename string) (*KeeperConfig, error) {
	var config KeeperConfig

	switch format {
	case FormatYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&config); err != nil {
			return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
		}
	case FormatTOML:
		meta, err := toml.Decode(string(data), &config)
		if err != nil {
			return nil, errors.NewValidationError("failed to parse TOML configuration", err).WithContext("filename", filename)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, errors.NewValidationError("unknown TOML configuration key: "+undecoded[0].String(), nil).
				WithContext("filename", filename)
		}
	case FormatLegacyJSON:
		return parseLegacyJSON(data)
	default:
		return nil, errors.NewValidationError("unsupported configuration format: "+string(format), nil)
	}

	return &config, nil
}

// Load loads, validates and resolves the configuration into the ordered unit list.
func Load(filename string) (*KeeperConfig, []unit.Descriptor, error) {
	config, err := LoadConfigFromFile(filename)
	if err != nil {
		return nil, nil, err
	}

	if err := ValidateConfig(config); err != nil {
		return nil, nil, errors.NewValidationError("configuration validation failed", err).WithContext("config_file", filename)
	}

	descriptors, err := Descriptors(config, filepath.Dir(filename))
	if err != nil {
		return nil, nil, err
	}

	return config, descriptors, nil
}

// Descriptors resolves environments and converts every unit, in file order.
// Relative env files are resolved against baseDir.
func Descriptors(config *KeeperConfig, baseDir string) ([]unit.Descriptor, error) {
	var global map[string]string
	if config.Keeper.EnvFile != "" {
		var err error
		global, err = readEnvFile(config.Keeper.EnvFile, baseDir)
		if err != nil {
			return nil, err
		}
	}

	descriptors := make([]unit.Descriptor, 0, len(config.Units))
	for _, u := range config.Units {
		var env []string
		if u.Process != nil && (global != nil || u.Process.EnvFile != "" || len(u.Process.Env) > 0) {
			resolved, err := processEnvironment(global, u.Process, baseDir)
			if err != nil {
				return nil, errors.NewValidationError("failed to resolve environment", err).WithContext("unit", u.ID)
			}
			env = resolved
		}
		descriptors = append(descriptors, u.Descriptor(env))
	}
	return descriptors, nil
}

// processEnvironment layers the keeper's own environment, the global env file,
// the unit env file and the unit env list, later entries winning.
func processEnvironment(global map[string]string, p *ProcessConfig, baseDir string) ([]string, error) {
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := cutEnv(kv); ok {
			merged[k] = v
		}
	}
	for k, v := range global {
		merged[k] = v
	}
	if p.EnvFile != "" {
		fileEnv, err := readEnvFile(p.EnvFile, baseDir)
		if err != nil {
			return nil, err
		}
		for k, v := range fileEnv {
			merged[k] = v
		}
	}
	for _, kv := range p.Env {
		if k, v, ok := cutEnv(kv); ok {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env, nil
}

func readEnvFile(path, baseDir string) (map[string]string, error) {
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, errors.NewIOError("failed to read env file", err).WithContext("env_file", path)
	}
	return env, nil
}

func cutEnv(kv string) (string, string, bool) {
	k, v, ok := strings.Cut(kv, "=")
	return k, v, ok && k != ""
}
