package manifest

import (
	"math/big"

	"github.com/cockroachdb/errors"

	"payoutScope/internal/address"
	"payoutScope/internal/amount"
	"payoutScope/internal/canonical"
	"payoutScope/internal/model"
)

var ErrHashMismatch = errors.New("manifest hash mismatch")

// hashedFields is the semantic content of a manifest. ID, CreatedAt, CreatedBy
// and Hash are excluded so identical payouts hash identically across builds.
type hashedFields struct {
	Winners     []model.NormalizedWinner `json:"winners"`
	Token       model.TokenInfo          `json:"token"`
	TotalAmount string                   `json:"totalAmount"`
	RoundID     string                   `json:"roundId"`
	GroupID     string                   `json:"groupId"`
	Version     string                   `json:"version"`
	Totals      model.ManifestTotals     `json:"totals"`
	Options     *model.ExecutionOptions  `json:"options,omitempty"`
}

// ComputeHash returns the content hash of m.
func ComputeHash(m model.PayoutManifest) (string, error) {
	return canonical.HashValue(hashedFields{
		Winners:     m.Winners,
		Token:       m.Token,
		TotalAmount: m.TotalAmount,
		RoundID:     m.RoundID,
		GroupID:     m.GroupID,
		Version:     m.Version,
		Totals:      m.Totals,
		Options:     m.Options,
	})
}

// Verify checks the manifest invariants: valid unique addresses, integer
// amounts summing to TotalAmount, and a matching hash.
func Verify(m model.PayoutManifest) error {
	var errList []error

	total := big.NewInt(0)
	seen := make(map[string]struct{}, len(m.Winners))
	for i, w := range m.Winners {
		addr, ok := address.ValidateAndChecksum(w.Address)
		if !ok || addr != w.Address {
			errList = append(errList, errors.Errorf("winners[%d]: address %q is not checksummed", i, w.Address))
		}
		if _, dup := seen[addr]; dup && ok {
			errList = append(errList, errors.Errorf("winners[%d]: duplicate address %s", i, addr))
		}
		seen[addr] = struct{}{}

		value, err := amount.ParseWei(w.Amount)
		if err != nil {
			errList = append(errList, errors.Wrapf(err, "winners[%d]", i))
			continue
		}
		total.Add(total, value)
	}

	if total.String() != m.TotalAmount {
		errList = append(errList, errors.Errorf("totalAmount %s does not equal winners sum %s", m.TotalAmount, total))
	}
	if m.Totals.AmountWei != m.TotalAmount {
		errList = append(errList, errors.Errorf("totals.amountWei %s does not equal totalAmount %s", m.Totals.AmountWei, m.TotalAmount))
	}

	hash, err := ComputeHash(m)
	if err != nil {
		errList = append(errList, errors.Wrap(err, "hash manifest"))
	} else if hash != m.Hash {
		errList = append(errList, errors.Wrapf(ErrHashMismatch, "have %s, computed %s", m.Hash, hash))
	}

	return errors.Join(errList...)
}
