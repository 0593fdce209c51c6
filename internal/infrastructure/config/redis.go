package config

// RedisConfig describes the connection settings for the cache/KV backend
// used by the tracker's default status store.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}
