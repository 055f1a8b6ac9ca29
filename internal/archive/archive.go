package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"payoutScope/internal/model"
)

// Config selects the bucket used for audit copies. Endpoint and UsePathStyle
// allow S3-compatible stores such as MinIO.
type Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Archiver uploads payout artifacts to S3.
type Archiver struct {
	uploader uploader
	cfg      Config
	logger   *zap.Logger
}

// New builds an Archiver from the default AWS credential chain.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "can't load aws config")
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newArchiver(manager.NewUploader(client), cfg, logger), nil
}

func newArchiver(u uploader, cfg Config, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{uploader: u, cfg: cfg, logger: logger}
}

// Key returns the object key for a manifest artifact.
func (a *Archiver) Key(manifestID, name string) string {
	return path.Join(a.cfg.Prefix, manifestID, name)
}

// PutManifest uploads the manifest JSON and returns the object location.
func (a *Archiver) PutManifest(ctx context.Context, m model.PayoutManifest) (string, error) {
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal manifest")
	}
	return a.put(ctx, a.Key(m.ID, "manifest.json"), "application/json", body, map[string]string{"manifest-hash": m.Hash})
}

// PutCSV uploads a CSV export of the manifest.
func (a *Archiver) PutCSV(ctx context.Context, m model.PayoutManifest, csv []byte) (string, error) {
	return a.put(ctx, a.Key(m.ID, "winners.csv"), "text/csv", csv, map[string]string{"manifest-hash": m.Hash})
}

// PutReport uploads a reconciliation report.
func (a *Archiver) PutReport(ctx context.Context, report model.ReconciliationReport) (string, error) {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal report")
	}
	name := "report-" + report.ReconciledAt + ".json"
	return a.put(ctx, a.Key(report.ManifestID, name), "application/json", body, map[string]string{"status": string(report.Status)})
}

func (a *Archiver) put(ctx context.Context, key, contentType string, body []byte, metadata map[string]string) (string, error) {
	out, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	if err != nil {
		return "", errors.Wrapf(err, "upload failed, bucket %s, key %s", a.cfg.Bucket, key)
	}
	a.logger.Info("artifact archived", zap.String("bucket", a.cfg.Bucket), zap.String("key", key), zap.Int("bytes", len(body)))
	return out.Location, nil
}
