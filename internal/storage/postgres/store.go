package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"payoutScope/internal/model"
)

// Stage is how far a manifest has progressed through the pipeline.
type Stage string

const (
	StageBuilt      Stage = "built"
	StagePrepared   Stage = "prepared"
	StageExecuted   Stage = "executed"
	StageReconciled Stage = "reconciled"
)

// Store provides Postgres persistence for manifests and their outcomes.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// SaveManifest stores the manifest and its winners in one transaction. Saving
// the same manifest again replaces its winner rows.
func (s *Store) SaveManifest(ctx context.Context, m model.PayoutManifest) error {
	args, err := manifestArgs(m)
	if err != nil {
		return err
	}
	winners := make([][]any, len(m.Winners))
	for i, w := range m.Winners {
		if winners[i], err = winnerArgs(m.ID, i, w); err != nil {
			return err
		}
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO payout_manifests (
				id, hash, chain_id, token_address, token_symbol, token_decimals, total_amount,
				recipients, round_id, group_id, version, created_by, created_at, body, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7::numeric,$8,$9,$10,$11,$12,$13,$14::jsonb,now())
			ON CONFLICT (id) DO UPDATE SET
				hash = EXCLUDED.hash,
				total_amount = EXCLUDED.total_amount,
				recipients = EXCLUDED.recipients,
				body = EXCLUDED.body,
				updated_at = now()
		`, args...); err != nil {
			return errors.Wrap(err, "upsert manifest")
		}

		if _, err := tx.Exec(ctx, `DELETE FROM payout_winners WHERE manifest_id = $1`, m.ID); err != nil {
			return errors.Wrap(err, "clear winners")
		}
		if len(m.Winners) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, row := range winners {
			batch.Queue(insertWinnerSQL, row...)
		}

		br := tx.SendBatch(ctx, batch)
		for range winners {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return errors.Wrap(err, "insert winner")
			}
		}
		return errors.Wrap(br.Close(), "close batch")
	})
}

// SaveResults upserts per-transaction execution results. Results recorded
// for another manifest are refused.
func (s *Store) SaveResults(ctx context.Context, manifestID string, results []model.ExecutionResult) error {
	if len(results) == 0 {
		return nil
	}
	batch, err := resultBatch(manifestID, results)
	if err != nil {
		return err
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range results {
		if _, err := br.Exec(); err != nil {
			return errors.Wrap(err, "upsert result")
		}
	}
	return nil
}

// SaveReport appends a reconciliation report.
func (s *Store) SaveReport(ctx context.Context, report model.ReconciliationReport) error {
	args, err := reportArgs(report)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO payout_reports (
			manifest_id, reconciled_at, status, success, total_amount_found, expected_amount,
			confirmed_transfers, failed_transfers, body
		) VALUES ($1,$2,$3,$4,$5::numeric,$6::numeric,$7,$8,$9::jsonb)
		ON CONFLICT (manifest_id, reconciled_at) DO UPDATE SET
			status = EXCLUDED.status,
			success = EXCLUDED.success,
			body = EXCLUDED.body
	`, args...)
	return errors.Wrap(err, "insert report")
}

// LoadState returns the recorded stage of a manifest.
func (s *Store) LoadState(ctx context.Context, manifestID string) (Stage, bool, error) {
	if manifestID == "" {
		return "", false, errors.New("manifest id required")
	}
	var stage string
	row := s.pool.QueryRow(ctx, `SELECT stage FROM payout_state WHERE manifest_id=$1`, manifestID)
	if err := row.Scan(&stage); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "load state")
	}
	return Stage(stage), true, nil
}

// SaveState upserts the stage of a manifest.
func (s *Store) SaveState(ctx context.Context, manifestID string, stage Stage) error {
	if manifestID == "" {
		return errors.New("manifest id required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payout_state (manifest_id, stage, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (manifest_id) DO UPDATE
		SET stage = EXCLUDED.stage, updated_at = now()
	`, manifestID, string(stage))
	return errors.Wrap(err, "save state")
}

// ResultSink adapts the store to storage.ResultSink for one manifest.
func (s *Store) ResultSink(ctx context.Context, manifestID string) *ResultSink {
	return &ResultSink{ctx: ctx, store: s, manifestID: manifestID}
}

// ResultSink writes execution results for a fixed manifest.
type ResultSink struct {
	ctx        context.Context
	store      *Store
	manifestID string
}

func (r *ResultSink) PutResults(results []model.ExecutionResult) error {
	return r.store.SaveResults(r.ctx, r.manifestID, results)
}
