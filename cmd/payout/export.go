package main

import (
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"payoutScope/internal/archive"
	"payoutScope/internal/config"
	"payoutScope/internal/export"
	"payoutScope/internal/storage"
)

func runExport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if utf8.RuneCountInString(cfg.Delimiter) != 1 {
		return errors.Errorf("delimiter must be a single character, got %q", cfg.Delimiter)
	}
	delimiter, _ := utf8.DecodeRuneInString(cfg.Delimiter)

	m, err := storage.LoadManifest(cfg.Manifest)
	if err != nil {
		return err
	}

	header := cfg.Header
	csv, err := export.ToCSV(m, export.Options{
		IncludeHeader:   &header,
		IncludeMetadata: cfg.IncludeMetadata,
		Delimiter:       delimiter,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Out), 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}
	if err := os.WriteFile(cfg.Out, []byte(csv), 0o644); err != nil {
		return errors.Wrap(err, "write csv")
	}

	ctx, stop := signalContext()
	defer stop()

	if cfg.S3.Bucket != "" {
		archiver, err := archive.New(ctx, archiveConfig(cfg.S3), logger)
		if err != nil {
			return err
		}
		if _, err := archiver.PutCSV(ctx, m, []byte(csv)); err != nil {
			return err
		}
		if _, err := archiver.PutManifest(ctx, m); err != nil {
			return err
		}
	}

	logger.Info("export done",
		zap.String("manifest_id", m.ID),
		zap.Int("winners", len(m.Winners)),
		zap.String("out", cfg.Out),
	)
	return nil
}

func archiveConfig(cfg config.S3Config) archive.Config {
	return archive.Config{
		Bucket:       cfg.Bucket,
		Prefix:       cfg.Prefix,
		Region:       cfg.Region,
		Endpoint:     cfg.Endpoint,
		UsePathStyle: cfg.PathStyle,
	}
}
