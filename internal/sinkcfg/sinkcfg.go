// Package sinkcfg provides config decoding utilities for sink settings
// tables ([sinks.<name>] in TOML).
package sinkcfg

import (
	"github.com/mitchellh/mapstructure"
)

// Setter is the interface a settings struct may implement to set default
// options after decoding.
type Setter interface {
	ApplyDefaults()
}

// Decode decodes the given raw settings table to the target pointer c.
// If c implements Setter, ApplyDefaults() is called automatically.
func Decode(input map[string]any, c any) error {
	config := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   c,
		TagName:  "mapstructure",
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		return err
	}

	if s, ok := c.(Setter); ok {
		s.ApplyDefaults()
	}

	return nil
}
