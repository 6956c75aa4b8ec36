package rules

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// RuleConfig is one materialized configuration entry: the rule it
// belongs to plus its untyped options, as loaded from a config
// document. Rules select the entries matching their ID, merge them
// last-wins and decode the result into their typed record.
type RuleConfig struct {
	RuleID  string
	Options map[string]any
}

// MergeOptions folds all entries for ruleID into one option map,
// last-wins per key.
func MergeOptions(configs []RuleConfig, ruleID string) map[string]any {
	merged := make(map[string]any)
	for _, cfg := range configs {
		if cfg.RuleID != ruleID {
			continue
		}
		for k, v := range cfg.Options {
			merged[k] = v
		}
	}
	return merged
}

// DecodeOptions decodes an option map into a typed config struct.
// Unknown keys are an error so typos in config files surface instead
// of being ignored.
func DecodeOptions(options map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      target,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(options); err != nil {
		return fmt.Errorf("decode rule options: %w", err)
	}
	return nil
}
