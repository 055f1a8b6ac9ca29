package signer

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"payoutScope/internal/address"
	"payoutScope/internal/amount"
	"payoutScope/internal/model"
)

var ErrChainMismatch = errors.New("chain id mismatch")

// Backend is the node access a LocalSigner needs. *chain.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// LocalSigner signs prepared transactions with an in-memory key. Nonces not
// fixed by the plan are taken from the pending nonce once and then tracked
// locally, so a LocalSigner must not be shared with other senders.
type LocalSigner struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	logger  *zap.Logger

	mu        sync.Mutex
	nextNonce *uint64
}

// NewLocalSigner parses a hex private key, with or without 0x.
func NewLocalSigner(backend Backend, hexKey string, logger *zap.Logger) (*LocalSigner, error) {
	if backend == nil {
		return nil, errors.New("signer backend is nil")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalSigner{
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		logger:  logger,
	}, nil
}

// Address returns the sending account.
func (s *LocalSigner) Address() common.Address {
	return s.from
}

// SendTransaction signs and broadcasts ptx and returns its hash. A node
// answering "already known" has the same transaction, which counts as sent.
func (s *LocalSigner) SendTransaction(ctx context.Context, ptx model.PreparedTx) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return "", errors.Wrap(err, "chain id")
	}
	if ptx.ChainID != 0 && chainID.Uint64() != ptx.ChainID {
		return "", errors.Wrapf(ErrChainMismatch, "node %s, plan %d", chainID, ptx.ChainID)
	}

	txData, err := s.build(ctx, ptx, chainID)
	if err != nil {
		return "", err
	}
	signed, err := types.SignNewTx(s.key, types.LatestSignerForChainID(chainID), txData)
	if err != nil {
		return "", errors.Wrap(err, "sign tx")
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		if !strings.Contains(err.Error(), "already known") {
			return "", errors.Wrap(err, "send tx")
		}
		s.logger.Info("transaction already known", zap.String("hash", signed.Hash().Hex()))
	}

	next := signed.Nonce() + 1
	s.nextNonce = &next
	return signed.Hash().Hex(), nil
}

func (s *LocalSigner) build(ctx context.Context, ptx model.PreparedTx, chainID *big.Int) (types.TxData, error) {
	to, err := address.Parse(ptx.To)
	if err != nil {
		return nil, err
	}
	value := big.NewInt(0)
	if ptx.Value != "" {
		if value, err = amount.ParseWei(ptx.Value); err != nil {
			return nil, errors.Wrap(err, "value")
		}
	}
	var data []byte
	if ptx.Data != "" {
		if data, err = hexutil.Decode(ptx.Data); err != nil {
			return nil, errors.Wrap(err, "data")
		}
	}
	nonce, err := s.nonce(ctx, ptx)
	if err != nil {
		return nil, err
	}

	head, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "latest header")
	}
	if head.BaseFee == nil {
		gasPrice, err := s.gasPrice(ctx, ptx.GasPrice)
		if err != nil {
			return nil, err
		}
		return &types.LegacyTx{Nonce: nonce, To: &to, Value: value, Gas: ptx.GasLimit, GasPrice: gasPrice, Data: data}, nil
	}

	tip, feeCap, err := s.fees(ctx, ptx, head.BaseFee)
	if err != nil {
		return nil, err
	}
	return &types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       ptx.GasLimit,
		To:        &to,
		Value:     value,
		Data:      data,
	}, nil
}

func (s *LocalSigner) nonce(ctx context.Context, ptx model.PreparedTx) (uint64, error) {
	if ptx.Nonce != nil {
		return *ptx.Nonce, nil
	}
	if s.nextNonce != nil {
		return *s.nextNonce, nil
	}
	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return 0, errors.Wrap(err, "pending nonce")
	}
	return nonce, nil
}

func (s *LocalSigner) gasPrice(ctx context.Context, planned string) (*big.Int, error) {
	if planned != "" {
		return amount.ParseWei(planned)
	}
	price, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "suggest gas price")
	}
	return price, nil
}

// fees picks EIP-1559 caps: explicit plan values win, a planned legacy gas
// price becomes the fee cap, otherwise 2*baseFee+tip.
func (s *LocalSigner) fees(ctx context.Context, ptx model.PreparedTx, baseFee *big.Int) (*big.Int, *big.Int, error) {
	var tip *big.Int
	var err error
	if ptx.MaxPriorityFeePerGas != "" {
		if tip, err = amount.ParseWei(ptx.MaxPriorityFeePerGas); err != nil {
			return nil, nil, errors.Wrap(err, "maxPriorityFeePerGas")
		}
	} else if tip, err = s.backend.SuggestGasTipCap(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "suggest gas tip")
	}

	var feeCap *big.Int
	switch {
	case ptx.MaxFeePerGas != "":
		if feeCap, err = amount.ParseWei(ptx.MaxFeePerGas); err != nil {
			return nil, nil, errors.Wrap(err, "maxFeePerGas")
		}
	case ptx.GasPrice != "":
		if feeCap, err = amount.ParseWei(ptx.GasPrice); err != nil {
			return nil, nil, errors.Wrap(err, "gasPrice")
		}
	default:
		feeCap = new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)
	}
	if tip.Cmp(feeCap) > 0 {
		tip = new(big.Int).Set(feeCap)
	}
	return tip, feeCap, nil
}
