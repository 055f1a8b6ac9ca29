package main

import (
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"payoutScope/internal/address"
	"payoutScope/internal/amount"
	"payoutScope/internal/chain"
	"payoutScope/internal/config"
	"payoutScope/internal/manifest"
	"payoutScope/internal/storage"
	"payoutScope/internal/storage/postgres"
	"payoutScope/internal/txprep"
)

func runPrepare(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPrepare(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	m, err := storage.LoadManifest(cfg.Manifest)
	if err != nil {
		return err
	}
	if err := manifest.Verify(m); err != nil {
		return errors.Wrap(err, "manifest failed verification")
	}

	opts := txprep.Options{
		MaxPerBatch:    cfg.MaxPerBatch,
		SingleApproval: cfg.SingleApproval,
		Airdrop:        cfg.Airdrop,
	}
	if cfg.StartingNonce >= 0 {
		nonce := uint64(cfg.StartingNonce)
		opts.StartingNonce = &nonce
	}
	if cfg.GasPrice != "" {
		if opts.GasPrice, err = amount.ParseWei(cfg.GasPrice); err != nil {
			return errors.Wrap(err, "gas-price")
		}
	}
	if cfg.MaxGasCost != "" {
		if opts.MaxGasCostWei, err = amount.ParseWei(cfg.MaxGasCost); err != nil {
			return errors.Wrap(err, "max-gas-cost")
		}
	}

	ctx, stop := signalContext()
	defer stop()

	if cfg.RPCURL != "" && (opts.GasPrice == nil || (opts.StartingNonce == nil && cfg.From != "")) {
		client, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return errors.Wrap(err, "connect rpc")
		}
		defer client.Close()

		chainID, err := client.ChainID(ctx)
		if err != nil {
			return err
		}
		if m.Token.ChainID != 0 && chainID.Cmp(new(big.Int).SetUint64(m.Token.ChainID)) != 0 {
			return errors.Errorf("rpc chain id %s does not match manifest chain id %d", chainID, m.Token.ChainID)
		}

		if opts.GasPrice == nil {
			if opts.GasPrice, err = client.SuggestGasPrice(ctx); err != nil {
				return err
			}
		}
		if opts.StartingNonce == nil && cfg.From != "" {
			from, err := address.Parse(cfg.From)
			if err != nil {
				return errors.Wrap(err, "from")
			}
			nonce, err := client.PendingNonceAt(ctx, from)
			if err != nil {
				return err
			}
			opts.StartingNonce = &nonce
		}
	}

	plan := txprep.PreparePushTxs(m, opts)
	if err := storage.WriteJSON(cfg.Out, plan); err != nil {
		return err
	}

	if cfg.PGDSN != "" && plan.Validation.IsValid {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveState(ctx, m.ID, postgres.StagePrepared); err != nil {
			return err
		}
	}

	for _, w := range plan.Validation.Warnings {
		logger.Warn("plan warning", zap.String("warning", w))
	}
	for _, e := range plan.Validation.Errors {
		logger.Error("plan error", zap.String("error", e))
	}
	logger.Info("prepare done",
		zap.String("manifest_id", plan.ManifestID),
		zap.Int("txs", len(plan.Txs)),
		zap.Bool("valid", plan.Validation.IsValid),
		zap.String("out", cfg.Out),
	)

	if !plan.Validation.IsValid {
		return errors.Errorf("plan has %d validation errors", len(plan.Validation.Errors))
	}
	return nil
}
