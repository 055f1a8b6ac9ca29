package executor

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"payoutScope/internal/model"
)

var (
	ErrNilSigner   = errors.New("signer is nil")
	ErrInvalidPlan = errors.New("plan failed validation")
	ErrStopped     = errors.New("execution stopped")
)

// Signer submits a prepared transaction and returns its hash.
type Signer interface {
	SendTransaction(ctx context.Context, tx model.PreparedTx) (string, error)
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(ctx context.Context, tx model.PreparedTx) (string, error)

func (f SignerFunc) SendTransaction(ctx context.Context, tx model.PreparedTx) (string, error) {
	return f(ctx, tx)
}

// Options configures an execution run.
type Options struct {
	Signer       Signer
	StopOnFail   bool
	AllowInvalid bool
	Logger       *zap.Logger
	// OnResult, when set, is called after every attempt in submission order.
	OnResult func(model.ExecutionResult)
}

// Execute submits the plan's transactions in order, each at most once. A
// failed submission is recorded and skipped unless StopOnFail is set, in which
// case the results so far are returned with an error wrapping ErrStopped.
func Execute(ctx context.Context, plan model.PreparedPayout, opts Options) ([]model.ExecutionResult, error) {
	if opts.Signer == nil {
		return nil, ErrNilSigner
	}
	if !plan.Validation.IsValid && !opts.AllowInvalid {
		return nil, errors.Wrapf(ErrInvalidPlan, "manifest %s: %d error(s)", plan.ManifestID, len(plan.Validation.Errors))
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]model.ExecutionResult, 0, len(plan.Txs))
	for _, tx := range plan.Txs {
		if err := ctx.Err(); err != nil {
			return results, errors.Wrap(err, "execution cancelled")
		}

		hash, err := opts.Signer.SendTransaction(ctx, tx)
		result := model.ExecutionResult{ManifestID: plan.ManifestID, Index: tx.Index, Kind: tx.Kind}
		if err == nil && hash == "" {
			err = errors.New("signer returned an empty hash")
		}
		if err != nil {
			result.Error = err.Error()
			logger.Warn("transaction submission failed",
				zap.String("manifest_id", plan.ManifestID),
				zap.Int("index", tx.Index),
				zap.String("kind", string(tx.Kind)),
				zap.Error(err),
			)
		} else {
			result.Hash = hash
			result.Success = true
			logger.Info("transaction submitted",
				zap.String("manifest_id", plan.ManifestID),
				zap.Int("index", tx.Index),
				zap.String("kind", string(tx.Kind)),
				zap.String("hash", hash),
			)
		}

		results = append(results, result)
		if opts.OnResult != nil {
			opts.OnResult(result)
		}
		if err != nil && opts.StopOnFail {
			return results, errors.Wrapf(errors.Mark(err, ErrStopped), "execution stopped at tx %d", tx.Index)
		}
	}

	return results, nil
}

// ExecuteTxPlan is Execute reduced to the submitted hashes. When every
// submission fails the list is empty and the error is nil. Like Execute, it
// returns ErrNilSigner or ErrInvalidPlan before submitting anything.
func ExecuteTxPlan(ctx context.Context, plan model.PreparedPayout, opts Options) ([]string, error) {
	results, err := Execute(ctx, plan, opts)
	return Hashes(results), err
}

// ForManifest keeps the results recorded for manifestID, in order.
func ForManifest(results []model.ExecutionResult, manifestID string) []model.ExecutionResult {
	return lo.Filter(results, func(r model.ExecutionResult, _ int) bool {
		return r.ManifestID == manifestID
	})
}

// Hashes returns the hashes of the successful results in order.
func Hashes(results []model.ExecutionResult) []string {
	hashes := make([]string, 0, len(results))
	for _, r := range results {
		if r.Success {
			hashes = append(hashes, r.Hash)
		}
	}
	return hashes
}
