package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PipelineConfig is the ordered plugin list. Order is significant: it is
// the order transform plugins run in and the order resolvers are asked in.
type PipelineConfig struct {
	Plugins []PluginEntry `yaml:"plugins"`
}

// PluginEntry is one descriptor: either a bare name or a name with options.
//
//	plugins:
//	  - env
//	  - name: babel
//	    options:
//	      presets: [es2015]
type PluginEntry struct {
	Name    string
	Options map[string]any
}

func (e *PluginEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&e.Name)
	case yaml.MappingNode:
		var raw struct {
			Name    string         `yaml:"name"`
			Options map[string]any `yaml:"options"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		if raw.Name == "" {
			return fmt.Errorf("plugin entry needs a name (line %d)", node.Line)
		}
		e.Name = raw.Name
		e.Options = raw.Options
		return nil
	default:
		return fmt.Errorf("plugin entry must be a name or a mapping (line %d)", node.Line)
	}
}

func loadPipelineConfig(path string) (PipelineConfig, error) {
	if path == "" {
		return PipelineConfig{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("read pipeline file: %w", err)
	}
	var cfg PipelineConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return PipelineConfig{}, fmt.Errorf("parse pipeline file: %w", err)
	}
	return cfg, nil
}
