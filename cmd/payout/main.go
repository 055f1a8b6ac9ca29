package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "payout",
		Short:        "Build, execute and reconcile on-chain payouts",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build a payout manifest from winner rows",
		RunE:  runBuild,
	}

	buildCmd.Flags().String("rpc", "", "RPC URL, used to read token metadata when decimals are not given")
	buildCmd.Flags().String("in", "", "input winner rows JSON")
	buildCmd.Flags().String("out", "./data/manifest.json", "output manifest JSON")
	buildCmd.Flags().String("rejected", "./data/rejected.json", "rejected rows JSON")
	buildCmd.Flags().String("token", "", "token contract address")
	buildCmd.Flags().String("token-symbol", "", "token symbol")
	buildCmd.Flags().String("token-name", "", "token name")
	buildCmd.Flags().Int("token-decimals", -1, "token decimals, -1 reads them from the contract")
	buildCmd.Flags().Uint64("chain-id", 0, "chain id")
	buildCmd.Flags().Bool("native", false, "pay out the chain's native currency")
	buildCmd.Flags().String("round-id", "", "round id")
	buildCmd.Flags().String("group-id", "", "group id")
	buildCmd.Flags().String("created-by", "", "manifest author")
	buildCmd.Flags().Int("clamp-decimals", -1, "truncate amounts to this many decimals, -1 disables")
	buildCmd.Flags().String("airdrop", "", "batch airdrop contract recorded with the manifest")
	buildCmd.Flags().Int("max-per-batch", 0, "recipients per batch recorded with the manifest")
	buildCmd.Flags().Bool("single-approval", false, "approve the batch contract once for the whole payout")
	buildCmd.Flags().String("pg-dsn", "", "optional Postgres DSN")
	buildCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(buildCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export manifest winners as CSV",
		RunE:  runExport,
	}

	exportCmd.Flags().String("manifest", "./data/manifest.json", "input manifest JSON")
	exportCmd.Flags().String("out", "./data/winners.csv", "output CSV path")
	exportCmd.Flags().Bool("header", true, "write a header row")
	exportCmd.Flags().Bool("include-metadata", false, "add a metadata column")
	exportCmd.Flags().String("delimiter", ",", "field delimiter")
	addS3Flags(exportCmd)
	exportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(exportCmd)

	prepareCmd := &cobra.Command{
		Use:   "prepare",
		Short: "Prepare the transaction plan for a manifest",
		RunE:  runPrepare,
	}

	prepareCmd.Flags().String("rpc", "", "RPC URL, used to read nonce and gas price when not given")
	prepareCmd.Flags().String("manifest", "./data/manifest.json", "input manifest JSON")
	prepareCmd.Flags().String("out", "./data/plan.json", "output plan JSON")
	prepareCmd.Flags().String("from", "", "sender address for nonce lookup")
	prepareCmd.Flags().String("airdrop", "", "batch airdrop contract address")
	prepareCmd.Flags().Int("max-per-batch", 0, "recipients per batch")
	prepareCmd.Flags().Bool("single-approval", false, "approve the batch contract once for the whole payout")
	prepareCmd.Flags().Int64("starting-nonce", -1, "first nonce, -1 leaves nonces to the signer")
	prepareCmd.Flags().String("gas-price", "", "gas price in wei")
	prepareCmd.Flags().String("max-gas-cost", "", "gas cost ceiling in wei")
	prepareCmd.Flags().String("pg-dsn", "", "optional Postgres DSN")
	prepareCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(prepareCmd)

	executeCmd := &cobra.Command{
		Use:   "execute",
		Short: "Sign and submit a prepared plan",
		RunE:  runExecute,
	}

	executeCmd.Flags().String("rpc", "", "RPC URL")
	executeCmd.Flags().String("plan", "./data/plan.json", "input plan JSON")
	executeCmd.Flags().String("private-key", "", "hex private key (prefer PAYOUT_PRIVATE_KEY)")
	executeCmd.Flags().String("journal", "./data/results.jsonl", "execution results JSONL")
	executeCmd.Flags().Bool("stop-on-fail", false, "stop at the first failed submission")
	executeCmd.Flags().Bool("allow-invalid", false, "execute a plan that failed validation")
	executeCmd.Flags().String("pg-dsn", "", "optional Postgres DSN")
	executeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(executeCmd)

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile submitted transactions against a manifest",
		RunE:  runReconcile,
	}

	reconcileCmd.Flags().String("rpc", "", "RPC URL")
	reconcileCmd.Flags().String("manifest", "./data/manifest.json", "input manifest JSON")
	reconcileCmd.Flags().String("journal", "./data/results.jsonl", "execution results JSONL")
	reconcileCmd.Flags().StringSlice("hash", nil, "extra transaction hashes (comma-separated)")
	reconcileCmd.Flags().String("out", "./data/report.json", "output report JSON")
	reconcileCmd.Flags().Uint64("confirmations", 1, "blocks required on top of each receipt")
	reconcileCmd.Flags().Int("concurrency", 8, "parallel receipt lookups")
	reconcileCmd.Flags().Duration("poll-interval", 2*time.Second, "initial receipt poll interval")
	reconcileCmd.Flags().Duration("max-poll", 30*time.Second, "maximum receipt poll interval")
	reconcileCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	reconcileCmd.Flags().Duration("receipt-timeout", 2*time.Minute, "wait per receipt before reporting the tx missing, 0 waits indefinitely")
	reconcileCmd.Flags().String("pg-dsn", "", "optional Postgres DSN")
	addS3Flags(reconcileCmd)
	reconcileCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(reconcileCmd)

	root.AddCommand(newMigrateCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addS3Flags(cmd *cobra.Command) {
	cmd.Flags().String("s3-bucket", "", "optional S3 bucket for audit copies")
	cmd.Flags().String("s3-prefix", "", "S3 key prefix")
	cmd.Flags().String("s3-region", "", "S3 region")
	cmd.Flags().String("s3-endpoint", "", "S3-compatible endpoint URL")
	cmd.Flags().Bool("s3-path-style", false, "use path-style S3 addressing")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
