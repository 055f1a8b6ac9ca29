package config

import "github.com/spf13/pflag"

// PrepareConfig holds configuration for the prepare command. With an RPC URL
// and a sender address, a missing nonce or gas price is read from the node.
type PrepareConfig struct {
	RPCURL         string
	Manifest       string
	Out            string
	From           string
	Airdrop        string
	MaxPerBatch    int
	SingleApproval bool
	StartingNonce  int64
	GasPrice       string
	MaxGasCost     string
	PGDSN          string
	LogLevel       string
}

// LoadPrepare merges config file, environment variables, and flags into PrepareConfig.
func LoadPrepare(cfgFile string, flags *pflag.FlagSet) (PrepareConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"manifest":       "./data/manifest.json",
		"out":            "./data/plan.json",
		"starting-nonce": int64(-1),
	})
	if err != nil {
		return PrepareConfig{}, err
	}

	return PrepareConfig{
		RPCURL:         v.GetString("rpc"),
		Manifest:       v.GetString("manifest"),
		Out:            v.GetString("out"),
		From:           v.GetString("from"),
		Airdrop:        v.GetString("airdrop"),
		MaxPerBatch:    v.GetInt("max-per-batch"),
		SingleApproval: v.GetBool("single-approval"),
		StartingNonce:  v.GetInt64("starting-nonce"),
		GasPrice:       v.GetString("gas-price"),
		MaxGasCost:     v.GetString("max-gas-cost"),
		PGDSN:          v.GetString("pg-dsn"),
		LogLevel:       v.GetString("log-level"),
	}, nil
}
