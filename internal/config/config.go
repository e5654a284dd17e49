package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Validate Redis
	if c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required")
	}

	// Validate files
	if c.Files.Root == "" {
		return fmt.Errorf("files.root is required")
	}
	if c.Files.MaxFileBytes <= 0 {
		return fmt.Errorf("files.max_file_bytes must be positive")
	}

	// Validate providers
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}

	providerModels := make(map[string]bool)
	for i, provider := range c.Providers {
		if provider.Name == "" {
			return fmt.Errorf("provider[%d].name is required", i)
		}
		if provider.BaseURL == "" {
			return fmt.Errorf("provider[%d].base_url is required", i)
		}
		if len(provider.Models) == 0 {
			return fmt.Errorf("provider[%d] must have at least one model", i)
		}

		for j, model := range provider.Models {
			if model.ID == "" {
				return fmt.Errorf("provider[%d].models[%d].id is required", i, j)
			}
			if model.DisplayName == "" {
				return fmt.Errorf("provider[%d].models[%d].display_name is required", i, j)
			}

			providerModels[provider.Name+"/"+model.ID] = true
		}
	}

	// Validate routing references
	for tier, ref := range map[string]string{
		"fast":     c.Routing.Fast,
		"balanced": c.Routing.Balanced,
		"deep":     c.Routing.Deep,
	} {
		if ref == "" {
			continue
		}
		if !providerModels[ref] {
			return fmt.Errorf("routing.%s references unknown model: %s", tier, ref)
		}
	}

	return nil
}

// GetProvider returns a provider by name
func (c *Config) GetProvider(name string) (*Provider, error) {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i], nil
		}
	}
	return nil, fmt.Errorf("provider %s not found", name)
}

// ResolveModel returns the provider and model for a model reference (e.g., "openai/gpt-4o")
func (c *Config) ResolveModel(modelRef string) (*Provider, *Model, error) {
	providerName, modelID, ok := strings.Cut(modelRef, "/")
	if !ok || providerName == "" || modelID == "" {
		return nil, nil, fmt.Errorf("invalid model reference: %s (expected format: provider/model)", modelRef)
	}

	provider, err := c.GetProvider(providerName)
	if err != nil {
		return nil, nil, err
	}

	for i := range provider.Models {
		if provider.Models[i].ID == modelID {
			return provider, &provider.Models[i], nil
		}
	}

	return nil, nil, fmt.Errorf("model %s not found in provider %s", modelID, providerName)
}
