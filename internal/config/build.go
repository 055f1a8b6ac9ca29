package config

import (
	"github.com/spf13/pflag"
)

// TokenConfig describes the payout token. Decimals < 0 means unknown, in
// which case the token contract is queried over RPC.
type TokenConfig struct {
	Address  string
	Symbol   string
	Name     string
	Decimals int
	ChainID  uint64
	Native   bool
}

// BuildConfig holds configuration for the build command.
type BuildConfig struct {
	RPCURL         string
	In             string
	Out            string
	Rejected       string
	Token          TokenConfig
	RoundID        string
	GroupID        string
	CreatedBy      string
	ClampDecimals  int
	Airdrop        string
	MaxPerBatch    int
	SingleApproval bool
	PGDSN          string
	LogLevel       string
}

// LoadBuild merges config file, environment variables, and flags into BuildConfig.
func LoadBuild(cfgFile string, flags *pflag.FlagSet) (BuildConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"out":            "./data/manifest.json",
		"rejected":       "./data/rejected.json",
		"token-decimals": -1,
		"clamp-decimals": -1,
	})
	if err != nil {
		return BuildConfig{}, err
	}

	return BuildConfig{
		RPCURL:   v.GetString("rpc"),
		In:       v.GetString("in"),
		Out:      v.GetString("out"),
		Rejected: v.GetString("rejected"),
		Token: TokenConfig{
			Address:  v.GetString("token"),
			Symbol:   v.GetString("token-symbol"),
			Name:     v.GetString("token-name"),
			Decimals: v.GetInt("token-decimals"),
			ChainID:  v.GetUint64("chain-id"),
			Native:   v.GetBool("native"),
		},
		RoundID:        v.GetString("round-id"),
		GroupID:        v.GetString("group-id"),
		CreatedBy:      v.GetString("created-by"),
		ClampDecimals:  v.GetInt("clamp-decimals"),
		Airdrop:        v.GetString("airdrop"),
		MaxPerBatch:    v.GetInt("max-per-batch"),
		SingleApproval: v.GetBool("single-approval"),
		PGDSN:          v.GetString("pg-dsn"),
		LogLevel:       v.GetString("log-level"),
	}, nil
}
