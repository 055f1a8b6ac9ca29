package config

import "github.com/spf13/pflag"

// MigrateConfig holds configuration for the migrate command.
type MigrateConfig struct {
	PGDSN    string
	Source   string
	LogLevel string
}

// LoadMigrate merges config file, environment variables, and flags into MigrateConfig.
func LoadMigrate(cfgFile string, flags *pflag.FlagSet) (MigrateConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"source": "migrations",
	})
	if err != nil {
		return MigrateConfig{}, err
	}

	return MigrateConfig{
		PGDSN:    v.GetString("pg-dsn"),
		Source:   v.GetString("source"),
		LogLevel: v.GetString("log-level"),
	}, nil
}
