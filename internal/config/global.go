package config

// GlobalConfig holds the flags common to both CLI entrypoints, grounded on
// cmd/radx/internal/cli/cli.go's GlobalConfig (logging + output mode).
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" help:"Log level (trace, debug, info, warn, error, fatal)" default:"info" enum:"trace,debug,info,warn,error,fatal"`
	Pretty   bool   `yaml:"pretty" help:"Human-readable log output instead of JSON" default:"true"`
	Debug    bool   `yaml:"debug" help:"Include caller info in log lines"`

	DatabaseURL string `yaml:"database_url" help:"PostgreSQL connection string" env:"RADX_DATABASE_URL"`
}
