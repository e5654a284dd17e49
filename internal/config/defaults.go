package config

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Redis: RedisConfig{
			Address:   "localhost:6379",
			DB:        0,
			KeyPrefix: "stillpoint:",
		},
		Files: FilesConfig{
			Root:         "data/objects",
			MaxFileBytes: 256 * 1024,
		},
		Routing: RoutingConfig{
			Fast:     "openai/gpt-4o-mini",
			Balanced: "openai/gpt-4o",
			Deep:     "anthropic/claude-3-5-sonnet-20241022",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
