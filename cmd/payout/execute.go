package main

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"payoutScope/internal/chain"
	"payoutScope/internal/config"
	"payoutScope/internal/executor"
	"payoutScope/internal/model"
	"payoutScope/internal/signer"
	"payoutScope/internal/storage"
	"payoutScope/internal/storage/postgres"
)

func runExecute(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExecute(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return errors.New("rpc url is required")
	}
	if cfg.PrivateKey == "" {
		return errors.New("private key is required")
	}
	if cfg.Journal == "" {
		return errors.New("journal path is required")
	}

	plan, err := storage.LoadPlan(cfg.Plan)
	if err != nil {
		return err
	}

	// A rerun must not pay anyone twice.
	journal, err := storage.ReadResults(cfg.Journal)
	if err != nil {
		return err
	}
	previous := executor.ForManifest(journal, plan.ManifestID)
	plan.Txs = pendingTxs(plan.Txs, previous)
	if len(journal) > 0 {
		logger.Info("journal found",
			zap.String("journal", cfg.Journal),
			zap.Int("previous_results", len(previous)),
			zap.Int("other_manifests", len(journal)-len(previous)),
			zap.Int("pending_txs", len(plan.Txs)),
		)
	}

	ctx, stop := signalContext()
	defer stop()

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return errors.Wrap(err, "connect rpc")
	}
	defer client.Close()

	localSigner, err := signer.NewLocalSigner(client, cfg.PrivateKey, logger)
	if err != nil {
		return err
	}

	sinks := []storage.ResultSink{storage.NewJsonlStorage(cfg.Journal)}
	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()

		stage, ok, err := store.LoadState(ctx, plan.ManifestID)
		if err != nil {
			return err
		}
		if ok && (stage == postgres.StageExecuted || stage == postgres.StageReconciled) {
			logger.Warn("manifest already executed", zap.String("manifest_id", plan.ManifestID), zap.String("stage", string(stage)))
		}
		sinks = append(sinks, store.ResultSink(ctx, plan.ManifestID))
	}

	logger.Info("execute start",
		zap.String("manifest_id", plan.ManifestID),
		zap.String("from", localSigner.Address().Hex()),
		zap.Int("txs", len(plan.Txs)),
		zap.Bool("stop_on_fail", cfg.StopOnFail),
	)

	results, execErr := executor.Execute(ctx, plan, executor.Options{
		Signer:       localSigner,
		StopOnFail:   cfg.StopOnFail,
		AllowInvalid: cfg.AllowInvalid,
		Logger:       logger,
		OnResult: func(result model.ExecutionResult) {
			for _, sink := range sinks {
				if err := sink.PutResults([]model.ExecutionResult{result}); err != nil {
					logger.Error("record result failed", zap.Int("index", result.Index), zap.String("hash", result.Hash), zap.Error(err))
				}
			}
		},
	})

	if store != nil && execErr == nil {
		if err := store.SaveState(ctx, plan.ManifestID, postgres.StageExecuted); err != nil {
			return err
		}
	}

	failed := lo.CountBy(results, func(r model.ExecutionResult) bool { return !r.Success })
	logger.Info("execute done",
		zap.String("manifest_id", plan.ManifestID),
		zap.Int("submitted", len(results)-failed),
		zap.Int("failed", failed),
		zap.String("journal", cfg.Journal),
	)
	return execErr
}

// pendingTxs drops transactions previous already records as submitted.
// previous must hold results for the plan's manifest only.
func pendingTxs(txs []model.PreparedTx, previous []model.ExecutionResult) []model.PreparedTx {
	done := make(map[int]struct{}, len(previous))
	for _, r := range previous {
		if r.Success {
			done[r.Index] = struct{}{}
		}
	}
	return lo.Filter(txs, func(tx model.PreparedTx, _ int) bool {
		_, ok := done[tx.Index]
		return !ok
	})
}
