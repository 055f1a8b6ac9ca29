package token

import (
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Transfer is a decoded ERC-20 Transfer event.
type Transfer struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// TransferTopic returns topic0 of Transfer(address,address,uint256).
func TransferTopic() common.Hash {
	parsed, err := ERC20ABI()
	if err != nil {
		return common.Hash{}
	}
	return parsed.Events["Transfer"].ID
}

// IsTransferLog reports whether log looks like a Transfer event by topic0.
func IsTransferLog(log *types.Log) bool {
	return log != nil && len(log.Topics) > 0 && log.Topics[0] == TransferTopic()
}

// DecodeTransfer decodes a Transfer log. The log must carry topic0 plus the
// two indexed addresses and a 32-byte value.
func DecodeTransfer(log *types.Log) (Transfer, error) {
	if log == nil {
		return Transfer{}, errors.New("nil log")
	}
	parsed, err := ERC20ABI()
	if err != nil {
		return Transfer{}, errors.Wrap(err, "parse erc20 abi")
	}
	event := parsed.Events["Transfer"]

	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return Transfer{}, errors.New("not a transfer log")
	}
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return Transfer{}, errors.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}

	var out Transfer
	var topics struct {
		From common.Address
		To   common.Address
	}
	if err := abi.ParseTopics(&topics, indexed, log.Topics[1:]); err != nil {
		return Transfer{}, errors.Wrap(err, "parse topics")
	}
	out.From = topics.From
	out.To = topics.To

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return Transfer{}, errors.Wrap(err, "unpack Transfer")
	}
	if len(values) != 1 {
		return Transfer{}, errors.Errorf("unexpected transfer values: %d", len(values))
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return Transfer{}, errors.Errorf("unsupported value type %T", values[0])
	}
	out.Value = value
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
