package policy

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ThresholdFile is the on-disk form of threshold overrides:
//
//	thresholds:
//	  financial:
//	    block_threshold: 65
//	    flag_threshold: 45
//	    confidence_minimum: 0.9
//	  logistics:
//	    block_threshold: 85
//	    flag_threshold: 60
//	    confidence_minimum: 0.7
type ThresholdFile struct {
	Thresholds map[string]Thresholds `yaml:"thresholds"`
}

// UnmarshalYAML reads the snake_case keys used by the JSON API.
func (t *Thresholds) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Block      *float64 `yaml:"block_threshold"`
		Flag       *float64 `yaml:"flag_threshold"`
		Confidence *float64 `yaml:"confidence_minimum"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Block == nil || raw.Flag == nil || raw.Confidence == nil {
		return fmt.Errorf("line %d: block_threshold, flag_threshold and confidence_minimum are required", node.Line)
	}
	t.BlockThreshold, t.FlagThreshold, t.ConfidenceMinimum = *raw.Block, *raw.Flag, *raw.Confidence
	return nil
}

// Validate checks that the thresholds are ordered and in range.
func (t Thresholds) Validate() error {
	if t.FlagThreshold < 0 || t.BlockThreshold > 100 || t.FlagThreshold > t.BlockThreshold {
		return fmt.Errorf("need 0 <= flag_threshold <= block_threshold <= 100, got %.1f/%.1f", t.FlagThreshold, t.BlockThreshold)
	}
	if t.ConfidenceMinimum < 0 || t.ConfidenceMinimum > 1 {
		return fmt.Errorf("confidence_minimum must be within [0,1], got %.2f", t.ConfidenceMinimum)
	}
	return nil
}

// ParseThresholds decodes and validates a threshold override document.
func ParseThresholds(r io.Reader) (map[string]Thresholds, error) {
	var f ThresholdFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("policy: decode thresholds: %w", err)
	}
	for agentType, t := range f.Thresholds {
		if agentType == "" {
			return nil, fmt.Errorf("policy: empty agent type in thresholds")
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("policy: thresholds for %q: %w", agentType, err)
		}
	}
	return f.Thresholds, nil
}

// LoadThresholdFile reads and validates overrides from path. Apply them
// with Table.With.
func LoadThresholdFile(path string) (map[string]Thresholds, error) {
	fh, err := os.Open(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("policy: open %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	return ParseThresholds(fh)
}
