package token

import (
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// PackTransfer encodes transfer(to, amount).
func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return pack(ERC20ABI, "transfer", to, amount)
}

// PackApprove encodes approve(spender, amount).
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return pack(ERC20ABI, "approve", spender, amount)
}

// PackDisperseToken encodes disperseToken(token, recipients, values).
func PackDisperseToken(token common.Address, recipients []common.Address, values []*big.Int) ([]byte, error) {
	if len(recipients) != len(values) {
		return nil, errors.Errorf("recipients/values length mismatch: %d != %d", len(recipients), len(values))
	}
	return pack(DisperseABI, "disperseToken", token, recipients, values)
}

// PackDisperseEther encodes disperseEther(recipients, values).
func PackDisperseEther(recipients []common.Address, values []*big.Int) ([]byte, error) {
	if len(recipients) != len(values) {
		return nil, errors.Errorf("recipients/values length mismatch: %d != %d", len(recipients), len(values))
	}
	return pack(DisperseABI, "disperseEther", recipients, values)
}

// UnpackDisperseEther decodes disperseEther calldata. It reports ok=false when
// data is not a disperseEther call.
func UnpackDisperseEther(data []byte) (recipients []common.Address, values []*big.Int, ok bool, err error) {
	parsed, err := DisperseABI()
	if err != nil {
		return nil, nil, false, errors.Wrap(err, "parse disperse abi")
	}
	method := parsed.Methods["disperseEther"]
	if len(data) < 4 || string(data[:4]) != string(method.ID) {
		return nil, nil, false, nil
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, true, errors.Wrap(err, "unpack disperseEther")
	}
	if len(args) != 2 {
		return nil, nil, true, errors.Errorf("unexpected disperseEther args: %d", len(args))
	}
	recipients, okRecipients := args[0].([]common.Address)
	values, okValues := args[1].([]*big.Int)
	if !okRecipients || !okValues {
		return nil, nil, true, errors.Errorf("unexpected disperseEther arg types %T, %T", args[0], args[1])
	}
	if len(recipients) != len(values) {
		return nil, nil, true, errors.Errorf("recipients/values length mismatch: %d != %d", len(recipients), len(values))
	}
	return recipients, values, true, nil
}

func pack(load func() (abi.ABI, error), method string, args ...interface{}) ([]byte, error) {
	parsed, err := load()
	if err != nil {
		return nil, errors.Wrap(err, "parse abi")
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}
	return data, nil
}
