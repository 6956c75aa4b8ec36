// Package config materializes rule configurations from TOML or YAML
// documents. A document carries one [rule.<rule-id>] table per rule;
// the tables stay untyped here and are schema-checked by each rule's
// ValidateConfiguration.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dhamidi/styler/errs"
	"github.com/dhamidi/styler/rules"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

type document struct {
	Rule map[string]map[string]any `toml:"rule" yaml:"rule"`
}

// Load reads a configuration file, deciding the syntax by extension:
// .toml is TOML, .yaml/.yml is YAML, anything else tries TOML first.
func Load(fs afero.Fs, path string) ([]rules.RuleConfig, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errs.WrapFile(errs.KindIO, path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return parseTOML(path, data)
	case ".yaml", ".yml":
		return parseYAML(path, data)
	default:
		configs, tomlErr := parseTOML(path, data)
		if tomlErr == nil {
			return configs, nil
		}
		configs, yamlErr := parseYAML(path, data)
		if yamlErr == nil {
			return configs, nil
		}
		return nil, errs.WrapFile(errs.KindConfig, path,
			fmt.Errorf("neither TOML (%v) nor YAML (%v)", tomlErr, yamlErr))
	}
}

func parseTOML(path string, data []byte) ([]rules.RuleConfig, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errs.WrapFile(errs.KindConfig, path, err)
	}
	return toConfigs(doc), nil
}

func parseYAML(path string, data []byte) ([]rules.RuleConfig, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errs.WrapFile(errs.KindConfig, path, err)
	}
	return toConfigs(doc), nil
}

func toConfigs(doc document) []rules.RuleConfig {
	ids := make([]string, 0, len(doc.Rule))
	for id := range doc.Rule {
		ids = append(ids, id)
	}
	// Deterministic order keeps last-wins merging stable across runs.
	sort.Strings(ids)

	configs := make([]rules.RuleConfig, 0, len(ids))
	for _, id := range ids {
		configs = append(configs, rules.RuleConfig{
			RuleID:  id,
			Options: normalizeKeys(doc.Rule[id]),
		})
	}
	return configs
}

// normalizeKeys recursively converts map[any]any (as yaml.v3 produces
// for nested tables in some shapes) into map[string]any so
// mapstructure decoding sees one shape.
func normalizeKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return normalizeKeys(vv)
	case map[any]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[fmt.Sprintf("%v", k)] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

// Validate runs every loaded table through its rule's schema check and
// reports the problems as one config error, or nil.
func Validate(engine *rules.Engine, configs []rules.RuleConfig) error {
	problems := engine.ValidateConfigs(configs)
	if len(problems) == 0 {
		return nil
	}
	return errs.New(errs.KindConfig, "invalid configuration: %s", strings.Join(problems, "; "))
}
