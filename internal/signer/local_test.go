package signer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"payoutScope/internal/model"
)

const testKey = "0xb71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

type fakeBackend struct {
	chainID    int64
	baseFee    *big.Int
	pending    uint64
	sendErr    error
	sent       []*types.Transaction
	nonceCalls int
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(f.chainID), nil }

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.nonceCalls++
	return f.pending, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(3_000_000_000), nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: f.baseFee}, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return f.sendErr
}

func transferTx() model.PreparedTx {
	return model.PreparedTx{
		Kind:     model.TxKindTransfer,
		To:       "0x3333333333333333333333333333333333333333",
		Value:    "1000",
		Data:     "0x",
		GasLimit: 21_000,
		ChainID:  8453,
	}
}

func TestSendDynamicFeeTx(t *testing.T) {
	backend := &fakeBackend{chainID: 8453, baseFee: big.NewInt(2_000_000_000), pending: 7}
	s, err := NewLocalSigner(backend, testKey, nil)
	require.NoError(t, err)

	key, err := crypto.HexToECDSA(testKey[2:])
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), s.Address())

	hash, err := s.SendTransaction(context.Background(), transferTx())
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	tx := backend.sent[0]
	require.Equal(t, tx.Hash().Hex(), hash)
	require.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	require.Equal(t, uint64(7), tx.Nonce())
	require.Equal(t, "1000", tx.Value().String())
	require.Equal(t, "5000000000", tx.GasFeeCap().String())
	require.Equal(t, "1000000000", tx.GasTipCap().String())
	require.Empty(t, tx.Data())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(8453)), tx)
	require.NoError(t, err)
	require.Equal(t, s.Address(), from)

	_, err = s.SendTransaction(context.Background(), transferTx())
	require.NoError(t, err)
	require.Equal(t, uint64(8), backend.sent[1].Nonce())
	require.Equal(t, 1, backend.nonceCalls)
}

func TestPlannedNonceAndGasPrice(t *testing.T) {
	backend := &fakeBackend{chainID: 8453, baseFee: big.NewInt(1)}
	s, err := NewLocalSigner(backend, testKey[2:], nil)
	require.NoError(t, err)

	nonce := uint64(42)
	ptx := transferTx()
	ptx.Nonce = &nonce
	ptx.GasPrice = "500000000"

	_, err = s.SendTransaction(context.Background(), ptx)
	require.NoError(t, err)
	tx := backend.sent[0]
	require.Equal(t, uint64(42), tx.Nonce())
	require.Equal(t, "500000000", tx.GasFeeCap().String())
	require.Equal(t, "500000000", tx.GasTipCap().String())
	require.Zero(t, backend.nonceCalls)
}

func TestLegacyWithoutBaseFee(t *testing.T) {
	backend := &fakeBackend{chainID: 56}
	s, err := NewLocalSigner(backend, testKey, nil)
	require.NoError(t, err)

	ptx := transferTx()
	ptx.ChainID = 56
	_, err = s.SendTransaction(context.Background(), ptx)
	require.NoError(t, err)
	require.Equal(t, uint8(types.LegacyTxType), backend.sent[0].Type())
	require.Equal(t, "3000000000", backend.sent[0].GasPrice().String())
}

func TestAlreadyKnownIsSuccess(t *testing.T) {
	backend := &fakeBackend{chainID: 8453, baseFee: big.NewInt(1), sendErr: errors.New("already known")}
	s, err := NewLocalSigner(backend, testKey, nil)
	require.NoError(t, err)

	hash, err := s.SendTransaction(context.Background(), transferTx())
	require.NoError(t, err)
	require.Equal(t, backend.sent[0].Hash().Hex(), hash)

	backend.sendErr = errors.New("insufficient funds for gas * price + value")
	_, err = s.SendTransaction(context.Background(), transferTx())
	require.ErrorContains(t, err, "insufficient funds")
}

func TestChainMismatch(t *testing.T) {
	backend := &fakeBackend{chainID: 1, baseFee: big.NewInt(1)}
	s, err := NewLocalSigner(backend, testKey, nil)
	require.NoError(t, err)

	_, err = s.SendTransaction(context.Background(), transferTx())
	require.ErrorIs(t, err, ErrChainMismatch)
	require.Empty(t, backend.sent)
}

func TestNewLocalSignerRejectsBadKey(t *testing.T) {
	_, err := NewLocalSigner(&fakeBackend{}, "0x1234", nil)
	require.Error(t, err)
	_, err = NewLocalSigner(nil, testKey, nil)
	require.Error(t, err)
}
