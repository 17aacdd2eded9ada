package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"

	"github.com/core-tools/hsu-keeper/pkg/atomicfile"
	"github.com/core-tools/hsu-keeper/pkg/errors"
)

// SetUnitEnabled rewrites the enabled flag of one unit in place and replaces the
// file atomically. YAML comments and layout survive the edit.
func SetUnitEnabled(filename, id string, enabled bool) error {
	format, err := DetectFormat(filename)
	if err != nil {
		return err
	}

	info, err := os.Stat(filename)
	if err != nil {
		return errors.NewIOError("failed to stat configuration file", err).WithContext("filename", filename)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var updated []byte
	switch format {
	case FormatYAML:
		updated, err = setEnabledYAML(data, id, enabled)
	case FormatTOML:
		updated, err = setEnabledTOML(data, id, enabled)
	case FormatLegacyJSON:
		updated, err = setEnabledLegacyJSON(data, id, enabled)
	}
	if err != nil {
		if errors.IsNotFoundError(err) {
			return err
		}
		return errors.NewValidationError("failed to update configuration", err).WithContext("filename", filename)
	}

	if err := atomicfile.WriteFile(filename, updated, info.Mode().Perm()); err != nil {
		return errors.NewIOError("failed to write configuration file", err).WithContext("filename", filename)
	}
	return nil
}

func unitNotFound(id string) error {
	return errors.NewNotFoundError("unit not found in configuration", nil).WithContext("unit", id)
}

func setEnabledYAML(data []byte, id string, enabled bool) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML document")
	}

	units := mappingValue(root.Content[0], "units")
	if units == nil || units.Kind != yaml.SequenceNode {
		return nil, unitNotFound(id)
	}

	var target *yaml.Node
	for _, entry := range units.Content {
		if idNode := mappingValue(entry, "id"); idNode != nil && idNode.Value == id {
			target = entry
			break
		}
	}
	if target == nil {
		return nil, unitNotFound(id)
	}

	value := fmt.Sprintf("%t", enabled)
	if node := mappingValue(target, "enabled"); node != nil {
		node.Kind = yaml.ScalarNode
		node.Tag = "!!bool"
		node.Value = value
	} else {
		target.Content = append(target.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "enabled"},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: value},
		)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// mappingValue returns the value node stored under key, or nil.
func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// setEnabledTOML edits a generic decode so durations and unknown keys round-trip
// as written. Comments are not preserved.
func setEnabledTOML(data []byte, id string, enabled bool) ([]byte, error) {
	var raw map[string]interface{}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, err
	}

	found := false
	switch units := raw["units"].(type) {
	case []map[string]interface{}:
		for _, u := range units {
			if u["id"] == id {
				u["enabled"] = enabled
				found = true
			}
		}
	case []interface{}:
		for _, entry := range units {
			if u, ok := entry.(map[string]interface{}); ok && u["id"] == id {
				u["enabled"] = enabled
				found = true
			}
		}
	}
	if !found {
		return nil, unitNotFound(id)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setEnabledLegacyJSON(data []byte, id string, enabled bool) ([]byte, error) {
	index, ok := legacyIndex(data, id)
	if !ok {
		return nil, unitNotFound(id)
	}
	state := legacyStateDisabled
	if enabled {
		state = legacyStateEnabled
	}
	return sjson.SetBytes(data, fmt.Sprintf("%d.state", index), state)
}
