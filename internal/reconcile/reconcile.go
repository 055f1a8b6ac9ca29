package reconcile

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"payoutScope/internal/address"
	"payoutScope/internal/amount"
	"payoutScope/internal/model"
)

// DefaultConcurrency bounds parallel receipt lookups.
const DefaultConcurrency = 8

var ErrNilClient = errors.New("read client is nil")

// ReadClient fetches transaction receipts.
type ReadClient interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	WaitForTransactionReceipt(ctx context.Context, hash common.Hash, confirmations uint64) (*types.Receipt, error)
}

// TxReader is implemented by clients that can also return transaction bodies.
// It is required to credit native-currency payouts, which emit no logs.
type TxReader interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

// Options configures a reconciliation run.
type Options struct {
	// Confirmations > 0 waits for that many blocks on top of each receipt.
	Confirmations uint64
	Concurrency   int
	Logger        *zap.Logger
	Now           func() time.Time
}

type credit struct {
	to    common.Address
	value *big.Int
}

type txOutcome struct {
	detail  model.TxDetail
	credits []credit
}

// ReconcilePush checks the submitted transactions against the manifest. Lookup
// and decoding problems only demote the affected transaction; the returned
// error is reserved for a nil client, an invalid token address or a cancelled
// context.
func ReconcilePush(ctx context.Context, client ReadClient, tokenAddress string, m model.PayoutManifest, hashes []string, opts Options) (model.ReconciliationReport, error) {
	if client == nil {
		return model.ReconciliationReport{}, ErrNilClient
	}
	native := m.Token.IsNative
	var tokenAddr common.Address
	if !native {
		parsed, err := address.Parse(tokenAddress)
		if err != nil {
			return model.ReconciliationReport{}, errors.Wrap(err, "token address")
		}
		tokenAddr = parsed
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	unique := lo.UniqBy(lo.Map(hashes, func(h string, _ int) string { return strings.TrimSpace(h) }), strings.ToLower)
	outcomes := make([]txOutcome, len(unique))

	r := &reconciler{client: client, token: tokenAddr, native: native, opts: opts, logger: logger}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, raw := range unique {
		i, raw := i, raw
		g.Go(func() error {
			outcomes[i] = r.inspect(gctx, raw)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return model.ReconciliationReport{}, errors.Wrap(err, "reconcile cancelled")
	}

	tokenLabel := m.Token.Symbol
	if !native {
		tokenLabel = tokenAddr.Hex()
	}
	report := assemble(m, tokenLabel, outcomes, len(unique) > 0)
	report.ReconciledAt = now(opts).UTC().Format(time.RFC3339)

	logger.Info("reconciliation finished",
		zap.String("manifest_id", m.ID),
		zap.String("status", string(report.Status)),
		zap.Int("hashes", len(unique)),
		zap.Int("confirmed", report.ConfirmedTransfers),
		zap.Int("failed", report.FailedTransfers),
		zap.String("found", report.TotalAmountFound),
		zap.String("expected", report.ExpectedTotalAmount),
	)
	return report, nil
}

func now(opts Options) time.Time {
	if opts.Now != nil {
		return opts.Now()
	}
	return time.Now()
}

type reconciler struct {
	client ReadClient
	token  common.Address
	native bool
	opts   Options
	logger *zap.Logger
}

func (r *reconciler) inspect(ctx context.Context, raw string) txOutcome {
	out := txOutcome{detail: model.TxDetail{Hash: raw}}

	decoded, err := hexutil.Decode(raw)
	if err != nil || len(decoded) != common.HashLength {
		out.detail.Status = model.TxMissing
		out.detail.Error = "invalid transaction hash"
		return out
	}
	hash := common.BytesToHash(decoded)
	out.detail.Hash = hash.Hex()

	receipt, err := r.receipt(ctx, hash)
	if err != nil {
		r.logger.Warn("receipt lookup failed", zap.String("hash", hash.Hex()), zap.Error(err))
		out.detail.Status = model.TxMissing
		out.detail.Error = err.Error()
		return out
	}
	if receipt.BlockNumber != nil {
		out.detail.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		out.detail.Status = model.TxReverted
		return out
	}

	var credits []credit
	if r.native {
		credits, err = r.nativeCredits(ctx, hash)
	} else {
		credits, err = tokenCredits(receipt, r.token)
	}
	if err != nil {
		r.logger.Warn("transaction undecodable", zap.String("hash", hash.Hex()), zap.Error(err))
		out.detail.Status = model.TxUndecodable
		out.detail.Error = err.Error()
		return out
	}

	out.detail.Status = model.TxSuccess
	out.detail.Transfers = len(credits)
	out.credits = credits
	return out
}

func (r *reconciler) receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var (
		receipt *types.Receipt
		err     error
	)
	if r.opts.Confirmations > 0 {
		receipt, err = r.client.WaitForTransactionReceipt(ctx, hash, r.opts.Confirmations)
	} else {
		receipt, err = r.client.TransactionReceipt(ctx, hash)
	}
	if err == nil && receipt == nil {
		err = errors.New("receipt not found")
	}
	return receipt, err
}

func assemble(m model.PayoutManifest, tokenLabel string, outcomes []txOutcome, hadHashes bool) model.ReconciliationReport {
	received := make(map[common.Address]*big.Int)
	transfers := make(map[common.Address]int)
	reverted := false

	report := model.ReconciliationReport{
		ManifestID:          m.ID,
		Token:               tokenLabel,
		ExpectedTotalAmount: m.TotalAmount,
		Recipients:          make([]model.RecipientDetail, 0, len(m.Winners)),
		Transactions:        make([]model.TxDetail, 0, len(outcomes)),
	}

	for _, o := range outcomes {
		report.Transactions = append(report.Transactions, o.detail)
		if o.detail.Status == model.TxReverted {
			reverted = true
		}
		for _, c := range o.credits {
			if received[c.to] == nil {
				received[c.to] = new(big.Int)
			}
			received[c.to].Add(received[c.to], c.value)
			transfers[c.to]++
		}
	}

	found := new(big.Int)
	winners := make(map[common.Address]struct{}, len(m.Winners))
	for _, w := range m.Winners {
		addr := common.HexToAddress(w.Address)
		winners[addr] = struct{}{}

		expected, err := amount.ParseWei(w.Amount)
		if err != nil {
			expected = new(big.Int)
		}
		got := received[addr]
		if got == nil {
			got = new(big.Int)
		}
		found.Add(found, got)

		status := classify(expected, got)
		confirmed := status == model.RecipientConfirmed || status == model.RecipientOverpaid
		switch {
		case !hadHashes:
			// Nothing was checked, so nobody is confirmed.
			status, confirmed = model.RecipientMissing, false
			report.FailedTransfers++
		case expected.Sign() == 0 && got.Sign() == 0:
			// No transfer is prepared for a zero amount; it counts either way.
		case confirmed:
			report.ConfirmedTransfers++
		default:
			report.FailedTransfers++
		}
		report.Recipients = append(report.Recipients, model.RecipientDetail{
			Address:   w.Address,
			Expected:  expected.String(),
			Received:  got.String(),
			Transfers: transfers[addr],
			Status:    status,
			Confirmed: confirmed,
		})
	}

	unexpected := new(big.Int)
	for addr, value := range received {
		if _, ok := winners[addr]; ok {
			continue
		}
		report.UnexpectedTransfers += transfers[addr]
		unexpected.Add(unexpected, value)
	}
	report.TotalAmountFound = found.String()
	report.UnexpectedAmount = unexpected.String()

	switch {
	case !hadHashes:
		report.Status = model.ReconcileFailed
	case report.FailedTransfers == 0 && !reverted:
		report.Status = model.ReconcileCompleted
	case report.ConfirmedTransfers == 0:
		report.Status = model.ReconcileFailed
	default:
		report.Status = model.ReconcilePartial
	}
	report.Success = report.Status == model.ReconcileCompleted
	return report
}

func classify(expected, received *big.Int) model.RecipientStatus {
	switch {
	case received.Sign() == 0 && expected.Sign() > 0:
		return model.RecipientMissing
	case received.Cmp(expected) == 0:
		return model.RecipientConfirmed
	case received.Cmp(expected) > 0:
		return model.RecipientOverpaid
	default:
		return model.RecipientUnderpaid
	}
}
