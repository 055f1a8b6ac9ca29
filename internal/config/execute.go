package config

import "github.com/spf13/pflag"

// ExecuteConfig holds configuration for the execute command.
type ExecuteConfig struct {
	RPCURL       string
	Plan         string
	PrivateKey   string
	Journal      string
	StopOnFail   bool
	AllowInvalid bool
	PGDSN        string
	LogLevel     string
}

// LoadExecute merges config file, environment variables, and flags into
// ExecuteConfig. The key is best supplied as PAYOUT_PRIVATE_KEY.
func LoadExecute(cfgFile string, flags *pflag.FlagSet) (ExecuteConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"plan":    "./data/plan.json",
		"journal": "./data/results.jsonl",
	})
	if err != nil {
		return ExecuteConfig{}, err
	}

	return ExecuteConfig{
		RPCURL:       v.GetString("rpc"),
		Plan:         v.GetString("plan"),
		PrivateKey:   v.GetString("private-key"),
		Journal:      v.GetString("journal"),
		StopOnFail:   v.GetBool("stop-on-fail"),
		AllowInvalid: v.GetBool("allow-invalid"),
		PGDSN:        v.GetString("pg-dsn"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}
