package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/chipflow/command-proxy/internal/domain/policy"
)

// LoadPolicyFile reads allow-lists from a YAML, TOML or JSON file. The format
// is chosen by extension.
func LoadPolicyFile(path string) (policy.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return policy.Spec{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(filepath.Ext(path), data)
}

// ParsePolicy decodes policy data in the format named by ext.
func ParsePolicy(ext string, data []byte) (policy.Spec, error) {
	var spec policy.Spec

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return spec, fmt.Errorf("failed to parse YAML policy: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &spec); err != nil {
			return spec, fmt.Errorf("failed to parse TOML policy: %w", err)
		}
	case ".json":
		if err := sonic.Unmarshal(data, &spec); err != nil {
			return spec, fmt.Errorf("failed to parse JSON policy: %w", err)
		}
	default:
		return spec, fmt.Errorf("unsupported policy format %q", ext)
	}

	return spec, nil
}
