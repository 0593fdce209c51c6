package config

// OrchestrateConfig carries the settings specific to the handler
// orchestration runtime: the platform identity used for short-ARN
// expansion, the envelope compression knobs, and the tracker's backend
// selection.
type OrchestrateConfig struct {
	Stage     string `mapstructure:"stage"`
	Region    string `mapstructure:"region"`
	AccountID string `mapstructure:"account_id"`

	Compression struct {
		Enabled bool `mapstructure:"enabled"`
		Level   int  `mapstructure:"level"`
	} `mapstructure:"compression"`

	Tracker struct {
		// Backend selects the store used for tracker status writes: "redis" (default) or "postgres".
		Backend     string `mapstructure:"backend"`
		SecretPath  string `mapstructure:"secret_path"`
		MaxSelfCall int    `mapstructure:"max_self_call"`
	} `mapstructure:"tracker"`
}
