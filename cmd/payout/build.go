package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"payoutScope/internal/address"
	"payoutScope/internal/chain"
	"payoutScope/internal/config"
	"payoutScope/internal/manifest"
	"payoutScope/internal/model"
	"payoutScope/internal/storage"
	"payoutScope/internal/storage/postgres"
	"payoutScope/internal/token"
)

const nativeDecimals = 18

func runBuild(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadBuild(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return errors.New("input path is required")
	}
	if cfg.ClampDecimals > 255 {
		return errors.Errorf("clamp-decimals %d out of range", cfg.ClampDecimals)
	}

	ctx, stop := signalContext()
	defer stop()

	tokenInfo, err := resolveToken(ctx, cfg, logger)
	if err != nil {
		return err
	}

	rows, err := storage.LoadRows(cfg.In)
	if err != nil {
		return err
	}

	opts := manifest.Options{
		Token:     &tokenInfo,
		RoundID:   cfg.RoundID,
		GroupID:   cfg.GroupID,
		CreatedBy: cfg.CreatedBy,
	}
	if cfg.ClampDecimals >= 0 {
		clamp := uint8(cfg.ClampDecimals)
		opts.ClampDecimals = &clamp
	}
	if cfg.Airdrop != "" || cfg.MaxPerBatch > 0 || cfg.SingleApproval {
		opts.Execution = &model.ExecutionOptions{
			Airdrop:        cfg.Airdrop,
			MaxPerBatch:    cfg.MaxPerBatch,
			SingleApproval: cfg.SingleApproval,
		}
	}

	result, err := manifest.NewBuilder(logger).Build(rows, opts)
	if err != nil {
		return err
	}
	if err := manifest.Verify(result.Manifest); err != nil {
		return errors.Wrap(err, "built manifest failed verification")
	}

	if err := storage.WriteJSON(cfg.Out, result.Manifest); err != nil {
		return err
	}
	if len(result.RejectedRows) > 0 {
		for _, r := range result.RejectedRows {
			logger.Warn("row rejected", zap.Int("row", r.Row), zap.String("address", r.Address), zap.String("reason", r.Reason))
		}
		if cfg.Rejected != "" {
			if err := storage.WriteJSON(cfg.Rejected, result.RejectedRows); err != nil {
				return err
			}
		}
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveManifest(ctx, result.Manifest); err != nil {
			return err
		}
		if err := store.SaveState(ctx, result.Manifest.ID, postgres.StageBuilt); err != nil {
			return err
		}
	}

	logger.Info("build done",
		zap.String("manifest_id", result.Manifest.ID),
		zap.String("hash", result.Manifest.Hash),
		zap.Int("winners", len(result.Manifest.Winners)),
		zap.Int("rejected", len(result.RejectedRows)),
		zap.String("total", result.Manifest.TotalAmount),
		zap.String("out", cfg.Out),
	)
	return nil
}

// resolveToken fills metadata the config leaves out from the token contract.
func resolveToken(ctx context.Context, cfg config.BuildConfig, logger *zap.Logger) (model.TokenInfo, error) {
	tc := cfg.Token
	info := model.TokenInfo{
		Address:  tc.Address,
		Symbol:   tc.Symbol,
		Name:     tc.Name,
		ChainID:  tc.ChainID,
		IsNative: tc.Native,
	}
	if tc.Decimals > 255 {
		return info, errors.Errorf("token-decimals %d out of range", tc.Decimals)
	}

	if tc.Native {
		info.Decimals = nativeDecimals
		if tc.Decimals >= 0 {
			info.Decimals = uint8(tc.Decimals)
		}
		return info, nil
	}
	if tc.Address == "" {
		return info, errors.New("token address is required")
	}

	needsChain := tc.Decimals < 0 || tc.Symbol == "" || tc.ChainID == 0
	if !needsChain {
		info.Decimals = uint8(tc.Decimals)
		return info, nil
	}
	if cfg.RPCURL == "" {
		if tc.Decimals < 0 {
			return info, errors.New("token-decimals or rpc url is required")
		}
		info.Decimals = uint8(tc.Decimals)
		return info, nil
	}

	tokenAddr, err := address.Parse(tc.Address)
	if err != nil {
		return info, err
	}
	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return info, errors.Wrap(err, "connect rpc")
	}
	defer client.Close()

	chainID := tc.ChainID
	if chainID == 0 {
		id, err := client.ChainID(ctx)
		if err != nil {
			return info, err
		}
		chainID = id.Uint64()
	}

	fetched, err := token.NewCache().Resolve(ctx, client, tokenAddr, chainID, logger)
	if err != nil {
		return info, errors.Wrap(err, "read token metadata")
	}
	if tc.Decimals >= 0 {
		fetched.Decimals = uint8(tc.Decimals)
	}
	if tc.Symbol != "" {
		fetched.Symbol = tc.Symbol
	}
	if tc.Name != "" {
		fetched.Name = tc.Name
	}
	return fetched, nil
}
