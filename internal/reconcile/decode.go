package reconcile

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"payoutScope/internal/token"
)

// tokenCredits collects Transfer events emitted by tokenAddr. Any Transfer log
// from the token that fails to decode rejects the whole receipt.
func tokenCredits(receipt *types.Receipt, tokenAddr common.Address) ([]credit, error) {
	credits := make([]credit, 0, len(receipt.Logs))
	for _, log := range receipt.Logs {
		if log == nil || log.Address != tokenAddr || !token.IsTransferLog(log) {
			continue
		}
		transfer, err := token.DecodeTransfer(log)
		if err != nil {
			return nil, errors.Wrapf(err, "log %d", log.Index)
		}
		credits = append(credits, credit{to: transfer.To, value: transfer.Value})
	}
	return credits, nil
}

// nativeCredits reads the transaction body: a plain value transfer credits its
// recipient, a disperseEther call credits each listed recipient.
func (r *reconciler) nativeCredits(ctx context.Context, hash common.Hash) ([]credit, error) {
	reader, ok := r.client.(TxReader)
	if !ok {
		return nil, errors.New("native payouts require a client that can read transactions")
	}
	tx, _, err := reader.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, errors.Wrap(err, "transaction lookup")
	}
	if tx == nil || tx.To() == nil {
		return nil, errors.New("contract creation or empty transaction")
	}

	if len(tx.Data()) == 0 {
		if tx.Value().Sign() == 0 {
			return []credit{}, nil
		}
		return []credit{{to: *tx.To(), value: tx.Value()}}, nil
	}

	recipients, values, isDisperse, err := token.UnpackDisperseEther(tx.Data())
	if err != nil {
		return nil, err
	}
	if !isDisperse {
		return nil, errors.Errorf("unrecognised calldata on %s", tx.To().Hex())
	}
	credits := make([]credit, len(recipients))
	for i := range recipients {
		credits[i] = credit{to: recipients[i], value: values[i]}
	}
	return credits, nil
}
