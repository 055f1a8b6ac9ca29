package main

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"payoutScope/internal/archive"
	"payoutScope/internal/chain"
	"payoutScope/internal/config"
	"payoutScope/internal/executor"
	"payoutScope/internal/manifest"
	"payoutScope/internal/model"
	"payoutScope/internal/reconcile"
	"payoutScope/internal/storage"
	"payoutScope/internal/storage/postgres"
)

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReconcile(cfgFile, cmd.Flags())
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

	m, err := storage.LoadManifest(cfg.Manifest)
	if err != nil {
		return err
	}
	if err := manifest.Verify(m); err != nil {
		return errors.Wrap(err, "manifest failed verification")
	}

	var hashes []string
	if cfg.Journal != "" {
		results, err := storage.ReadResults(cfg.Journal)
		if err != nil {
			return err
		}
		hashes = executor.Hashes(executor.ForManifest(results, m.ID))
	}
	hashes = append(hashes, cfg.Hashes...)

	ctx, stop := signalContext()
	defer stop()

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return errors.Wrap(err, "connect rpc")
	}
	defer client.Close()
	client.SetPolling(cfg.PollInterval, cfg.MaxPollInterval, cfg.MaxRetries)
	client.SetReceiptTimeout(cfg.ReceiptTimeout)

	logger.Info("reconcile start",
		zap.String("manifest_id", m.ID),
		zap.Int("hashes", len(hashes)),
		zap.Uint64("confirmations", cfg.Confirmations),
	)

	report, err := reconcile.ReconcilePush(ctx, client, m.Token.Address, m, hashes, reconcile.Options{
		Confirmations: cfg.Confirmations,
		Concurrency:   cfg.Concurrency,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	if err := storage.WriteJSON(cfg.Out, report); err != nil {
		return err
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveReport(ctx, report); err != nil {
			return err
		}
		if err := store.SaveState(ctx, m.ID, postgres.StageReconciled); err != nil {
			return err
		}
	}

	if cfg.S3.Bucket != "" {
		archiver, err := archive.New(ctx, archiveConfig(cfg.S3), logger)
		if err != nil {
			return err
		}
		if _, err := archiver.PutReport(ctx, report); err != nil {
			return err
		}
	}

	for _, r := range report.Recipients {
		if !r.Confirmed || r.Status == model.RecipientOverpaid {
			logger.Warn("recipient mismatch",
				zap.String("address", r.Address),
				zap.String("status", string(r.Status)),
				zap.String("expected", r.Expected),
				zap.String("received", r.Received),
			)
		}
	}
	logger.Info("reconcile done",
		zap.String("manifest_id", m.ID),
		zap.String("status", string(report.Status)),
		zap.Int("unexpected_transfers", report.UnexpectedTransfers),
		zap.String("out", cfg.Out),
	)
	return nil
}
