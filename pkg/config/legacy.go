package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/core-tools/hsu-keeper/pkg/errors"
	"github.com/core-tools/hsu-keeper/pkg/unit"
)

const (
	legacyStateEnabled  = "Enabled"
	legacyStateDisabled = "Disabled"
)

// parseLegacyJSON reads the legacy list format. Entries without a state are disabled.
func parseLegacyJSON(data []byte) (*KeeperConfig, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.NewValidationError("failed to parse JSON configuration", nil)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, errors.NewValidationError("legacy JSON configuration must be an array", nil)
	}

	config := &KeeperConfig{}
	ids := legacyIDs(root)

	for i, entry := range root.Array() {
		var args []string
		for _, arg := range entry.Get("args").Array() {
			args = append(args, arg.String())
		}

		enabled := strings.EqualFold(entry.Get("state").String(), legacyStateEnabled)
		config.Units = append(config.Units, UnitConfig{
			ID:      ids[i],
			Kind:    unit.KindProcess,
			Enabled: &enabled,
			Process: &ProcessConfig{
				Program: entry.Get("program").String(),
				Args:    args,
				Dir:     entry.Get("cwd").String(),
			},
		})
	}

	return config, nil
}

// legacyIDs derives unit IDs from program base names. A repeated name gets the
// first free "-N" suffix, so the result never holds the same ID twice.
func legacyIDs(root gjson.Result) []string {
	var ids []string
	used := make(map[string]bool)
	root.ForEach(func(_, entry gjson.Result) bool {
		program := strings.ReplaceAll(entry.Get("program").String(), `\`, "/")
		base := filepath.Base(program)
		name := sanitizeID(strings.TrimSuffix(base, filepath.Ext(base)))
		if name == "" {
			name = "unit"
		}
		id := name
		for n := 2; used[id]; n++ {
			id = fmt.Sprintf("%s-%d", name, n)
		}
		used[id] = true
		ids = append(ids, id)
		return true
	})
	return ids
}

func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// legacyIndex returns the array index of the entry with the derived id.
func legacyIndex(data []byte, id string) (int, bool) {
	for i, candidate := range legacyIDs(gjson.ParseBytes(data)) {
		if candidate == id {
			return i, true
		}
	}
	return -1, false
}
