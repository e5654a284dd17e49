package config

// Config represents the complete application configuration
type Config struct {
	Redis     RedisConfig   `yaml:"redis"`
	Files     FilesConfig   `yaml:"files"`
	Providers []Provider    `yaml:"providers"`
	Routing   RoutingConfig `yaml:"routing"`
	Logging   LoggingConfig `yaml:"logging"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address     string `yaml:"address"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	KeyPrefix   string `yaml:"key_prefix"`
}

// FilesConfig holds settings for the local object root that uploaded
// attachments are parsed from.
type FilesConfig struct {
	Root         string `yaml:"root"`
	MaxFileBytes int64  `yaml:"max_file_bytes"`
}

// Provider represents an LLM provider configuration
type Provider struct {
	Name      string  `yaml:"name"`
	BaseURL   string  `yaml:"base_url"`
	APIKeyEnv string  `yaml:"api_key_env"`
	Models    []Model `yaml:"models"`
}

// Model represents an LLM model configuration
type Model struct {
	ID            string `yaml:"id"`
	DisplayName   string `yaml:"display_name"`
	ContextWindow int    `yaml:"context_window"`
}

// RoutingConfig assigns a model reference ("provider/model") to each
// routing tier. Empty values fall back to the router's defaults.
type RoutingConfig struct {
	Fast     string `yaml:"fast"`
	Balanced string `yaml:"balanced"`
	Deep     string `yaml:"deep"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
