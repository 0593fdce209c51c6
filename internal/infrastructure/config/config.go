package config

type Config struct {
	// Global configuration
	App       AppConfig       `mapstructure:"app"`
	Http      HttpConfig      `mapstructure:"http"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Domain configuration
	Database     DatabaseConfig     `mapstructure:"database"`
	Cache        RedisConfig        `mapstructure:"cache"`
	Log          LogConfig          `mapstructure:"log"`
	Orchestrate  OrchestrateConfig  `mapstructure:"orchestrate"`
}
