package postgres

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"payoutScope/internal/model"
)

const insertWinnerSQL = `
	INSERT INTO payout_winners (
		manifest_id, position, address, amount, rank, external_id, metadata, sources
	) VALUES ($1,$2,$3,$4::numeric,$5,$6,$7::jsonb,$8)
`

const upsertResultSQL = `
	INSERT INTO payout_transactions (manifest_id, tx_index, kind, hash, success, error, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,now())
	ON CONFLICT (manifest_id, tx_index) DO UPDATE SET
		kind = EXCLUDED.kind,
		hash = EXCLUDED.hash,
		success = EXCLUDED.success,
		error = EXCLUDED.error,
		updated_at = now()
`

func manifestArgs(m model.PayoutManifest) ([]any, error) {
	if m.ID == "" {
		return nil, errors.New("manifest id required")
	}
	body, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshal manifest")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, m.CreatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest createdAt %q", m.CreatedAt)
	}
	return []any{
		m.ID,
		m.Hash,
		int64(m.Token.ChainID),
		m.Token.Address,
		m.Token.Symbol,
		int16(m.Token.Decimals),
		m.TotalAmount,
		len(m.Winners),
		m.RoundID,
		m.GroupID,
		m.Version,
		m.CreatedBy,
		createdAt,
		string(body),
	}, nil
}

// winnerArgs stores metadata as NULL when empty.
func winnerArgs(manifestID string, position int, w model.NormalizedWinner) ([]any, error) {
	var metadata *string
	if len(w.Metadata) > 0 {
		raw, err := json.Marshal(w.Metadata)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal metadata for %s", w.Address)
		}
		text := string(raw)
		metadata = &text
	}
	sources := make([]int32, len(w.Sources))
	for j, src := range w.Sources {
		sources[j] = int32(src)
	}
	return []any{manifestID, position, w.Address, w.Amount, w.Rank, w.ID, metadata, sources}, nil
}

func resultBatch(manifestID string, results []model.ExecutionResult) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	for _, r := range results {
		if r.ManifestID != "" && r.ManifestID != manifestID {
			return nil, errors.Errorf("result %d belongs to manifest %s, not %s", r.Index, r.ManifestID, manifestID)
		}
		batch.Queue(upsertResultSQL, manifestID, r.Index, string(r.Kind), r.Hash, r.Success, r.Error)
	}
	return batch, nil
}

func reportArgs(report model.ReconciliationReport) ([]any, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return nil, errors.Wrap(err, "marshal report")
	}
	reconciledAt, err := time.Parse(time.RFC3339, report.ReconciledAt)
	if err != nil {
		return nil, errors.Wrapf(err, "report reconciledAt %q", report.ReconciledAt)
	}
	return []any{
		report.ManifestID,
		reconciledAt,
		string(report.Status),
		report.Success,
		report.TotalAmountFound,
		report.ExpectedTotalAmount,
		report.ConfirmedTransfers,
		report.FailedTransfers,
		string(body),
	}, nil
}
