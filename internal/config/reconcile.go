package config

import (
	"time"

	"github.com/spf13/pflag"
)

// ReconcileConfig holds configuration for the reconcile command. Hashes
// listed explicitly are checked in addition to those in the journal.
type ReconcileConfig struct {
	RPCURL        string
	Manifest      string
	Journal       string
	Hashes        []string
	Out           string
	Confirmations uint64
	Concurrency   int
	// PollInterval and MaxPollInterval bound the backoff while waiting for
	// receipts; MaxRetries applies to transient RPC errors.
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	MaxRetries      int
	// ReceiptTimeout is how long to wait for one receipt before the
	// transaction is reported missing.
	ReceiptTimeout time.Duration
	PGDSN          string
	S3             S3Config
	LogLevel       string
}

// LoadReconcile merges config file, environment variables, and flags into ReconcileConfig.
func LoadReconcile(cfgFile string, flags *pflag.FlagSet) (ReconcileConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"manifest":        "./data/manifest.json",
		"journal":         "./data/results.jsonl",
		"out":             "./data/report.json",
		"confirmations":   uint64(1),
		"concurrency":     8,
		"poll-interval":   2 * time.Second,
		"max-poll":        30 * time.Second,
		"max-retries":     5,
		"receipt-timeout": 2 * time.Minute,
	})
	if err != nil {
		return ReconcileConfig{}, err
	}

	return ReconcileConfig{
		RPCURL:          v.GetString("rpc"),
		Manifest:        v.GetString("manifest"),
		Journal:         v.GetString("journal"),
		Hashes:          getStringSlice(v, "hash"),
		Out:             v.GetString("out"),
		Confirmations:   v.GetUint64("confirmations"),
		Concurrency:     v.GetInt("concurrency"),
		PollInterval:    v.GetDuration("poll-interval"),
		MaxPollInterval: v.GetDuration("max-poll"),
		MaxRetries:      v.GetInt("max-retries"),
		ReceiptTimeout:  v.GetDuration("receipt-timeout"),
		PGDSN:           v.GetString("pg-dsn"),
		S3:              s3Config(v),
		LogLevel:        v.GetString("log-level"),
	}, nil
}
