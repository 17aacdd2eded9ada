package config

import (
	"path/filepath"
	"strings"

	"github.com/core-tools/hsu-keeper/pkg/errors"
)

// Format is the on-disk encoding of a configuration file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	// FormatLegacyJSON is a bare array of {program, args, cwd, state} entries.
	FormatLegacyJSON Format = "json"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatLegacyJSON, nil
	default:
		return "", errors.NewValidationError("unsupported configuration file extension", nil).
			WithContext("filename", path).
			WithContext("supported_extensions", ".yaml, .yml, .toml, .json")
	}
}
