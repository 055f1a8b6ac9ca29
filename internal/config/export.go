package config

import "github.com/spf13/pflag"

// ExportConfig holds configuration for the export command.
type ExportConfig struct {
	Manifest        string
	Out             string
	Header          bool
	IncludeMetadata bool
	Delimiter       string
	S3              S3Config
	LogLevel        string
}

// LoadExport merges config file, environment variables, and flags into ExportConfig.
func LoadExport(cfgFile string, flags *pflag.FlagSet) (ExportConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"manifest":  "./data/manifest.json",
		"out":       "./data/winners.csv",
		"header":    true,
		"delimiter": ",",
	})
	if err != nil {
		return ExportConfig{}, err
	}

	return ExportConfig{
		Manifest:        v.GetString("manifest"),
		Out:             v.GetString("out"),
		Header:          v.GetBool("header"),
		IncludeMetadata: v.GetBool("include-metadata"),
		Delimiter:       v.GetString("delimiter"),
		S3:              s3Config(v),
		LogLevel:        v.GetString("log-level"),
	}, nil
}
