package reconcile

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"payoutScope/internal/model"
	"payoutScope/internal/token"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	tokenAddr = common.HexToAddress("0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb")
	otherAddr = common.HexToAddress("0x9999999999999999999999999999999999999999")
	sender    = common.HexToAddress("0x8888888888888888888888888888888888888888")
	winnerA   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	winnerB   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	winnerC   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	stranger  = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

type fakeClient struct {
	mu       sync.Mutex
	receipts map[common.Hash]*types.Receipt
	errs     map[common.Hash]error
	delay    func(common.Hash) time.Duration
	waited   []uint64
}

func newFakeClient() *fakeClient {
	return &fakeClient{receipts: map[common.Hash]*types.Receipt{}, errs: map[common.Hash]error{}}
}

func (f *fakeClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if f.delay != nil {
		select {
		case <-time.After(f.delay(hash)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[hash]; err != nil {
		return nil, err
	}
	receipt, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (f *fakeClient) WaitForTransactionReceipt(ctx context.Context, hash common.Hash, confirmations uint64) (*types.Receipt, error) {
	f.mu.Lock()
	f.waited = append(f.waited, confirmations)
	f.mu.Unlock()
	return f.TransactionReceipt(ctx, hash)
}

func (f *fakeClient) add(hash common.Hash, status uint64, logs ...*types.Log) {
	f.receipts[hash] = &types.Receipt{Status: status, BlockNumber: big.NewInt(100), Logs: logs}
}

type nativeClient struct {
	*fakeClient
	txs map[common.Hash]*types.Transaction
}

func (n *nativeClient) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	tx, ok := n.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, false, nil
}

func hashOf(n int64) common.Hash {
	return common.BigToHash(big.NewInt(n))
}

func transferLog(emitter, to common.Address, value int64) *types.Log {
	return &types.Log{
		Address: emitter,
		Topics:  []common.Hash{token.TransferTopic(), common.BytesToHash(sender.Bytes()), common.BytesToHash(to.Bytes())},
		Data:    common.BigToHash(big.NewInt(value)).Bytes(),
	}
}

func testManifest(native bool) model.PayoutManifest {
	m := model.PayoutManifest{
		ID:          "m-1",
		Token:       model.TokenInfo{Address: tokenAddr.Hex(), Symbol: "USDC", Decimals: 6, ChainID: 8453},
		TotalAmount: "6000",
		Winners: []model.NormalizedWinner{
			{Address: winnerA.Hex(), Amount: "1000"},
			{Address: winnerB.Hex(), Amount: "2000"},
			{Address: winnerC.Hex(), Amount: "3000"},
		},
	}
	if native {
		m.Token = model.TokenInfo{Symbol: "ETH", Decimals: 18, ChainID: 1, IsNative: true}
	}
	return m
}

func statuses(report model.ReconciliationReport) []model.RecipientStatus {
	out := make([]model.RecipientStatus, len(report.Recipients))
	for i, r := range report.Recipients {
		out[i] = r.Status
	}
	return out
}

func TestZeroHashesFail(t *testing.T) {
	report, err := ReconcilePush(context.Background(), newFakeClient(), tokenAddr.Hex(), testManifest(false), nil, Options{})
	require.NoError(t, err)
	require.Equal(t, model.ReconcileFailed, report.Status)
	require.False(t, report.Success)
	require.Zero(t, report.ConfirmedTransfers)
	require.Equal(t, 3, report.FailedTransfers)
	require.Empty(t, report.Transactions)
	require.Equal(t, "0", report.TotalAmountFound)
	require.Equal(t, "6000", report.ExpectedTotalAmount)
	require.Equal(t, []model.RecipientStatus{model.RecipientMissing, model.RecipientMissing, model.RecipientMissing}, statuses(report))
}

func TestZeroHashesConfirmNobody(t *testing.T) {
	m := testManifest(false)
	m.Winners = append(m.Winners, model.NormalizedWinner{Address: stranger.Hex(), Amount: "0"})

	report, err := ReconcilePush(context.Background(), newFakeClient(), tokenAddr.Hex(), m, nil, Options{})
	require.NoError(t, err)
	require.Equal(t, model.ReconcileFailed, report.Status)
	require.Zero(t, report.ConfirmedTransfers)
	require.Equal(t, 4, report.FailedTransfers)
	require.Equal(t, model.RecipientMissing, report.Recipients[3].Status)
	require.False(t, report.Recipients[3].Confirmed)
}

func TestZeroAmountWinnerLeftOutOfCounts(t *testing.T) {
	m := testManifest(false)
	m.Winners = append(m.Winners, model.NormalizedWinner{Address: stranger.Hex(), Amount: "0"})

	client := newFakeClient()
	client.add(hashOf(1), types.ReceiptStatusSuccessful,
		transferLog(tokenAddr, winnerA, 1000),
		transferLog(tokenAddr, winnerB, 2000),
		transferLog(tokenAddr, winnerC, 3000),
	)

	report, err := ReconcilePush(context.Background(), client, tokenAddr.Hex(), m, []string{hashOf(1).Hex()}, Options{})
	require.NoError(t, err)
	require.Equal(t, model.ReconcileCompleted, report.Status)
	require.Equal(t, 3, report.ConfirmedTransfers)
	require.Zero(t, report.FailedTransfers)
	require.True(t, report.Recipients[3].Confirmed)
}

func TestUnknownHashStillProducesReport(t *testing.T) {
	client := newFakeClient()
	client.add(hashOf(1), types.ReceiptStatusSuccessful, transferLog(tokenAddr, winnerA, 1000))
	client.errs[hashOf(2)] = errors.Wrap(ethereum.NotFound, "gave up after 2m0s")

	report, err := ReconcilePush(context.Background(), client, tokenAddr.Hex(), testManifest(false),
		[]string{hashOf(1).Hex(), hashOf(2).Hex()}, Options{Confirmations: 1})
	require.NoError(t, err)
	require.Equal(t, model.ReconcilePartial, report.Status)
	require.Equal(t, model.TxMissing, report.Transactions[1].Status)
	require.Equal(t, []uint64{1, 1}, client.waited)
}

func TestCompletedWithSplitDelivery(t *testing.T) {
	client := newFakeClient()
	h1, h2 := hashOf(1), hashOf(2)
	client.add(h1, types.ReceiptStatusSuccessful,
		transferLog(tokenAddr, winnerA, 1000),
		transferLog(tokenAddr, winnerB, 500),
		transferLog(otherAddr, winnerA, 999),
	)
	client.add(h2, types.ReceiptStatusSuccessful,
		transferLog(tokenAddr, stranger, 6000),
		transferLog(tokenAddr, winnerB, 1500),
		transferLog(tokenAddr, winnerC, 3000),
	)

	hashes := []string{h1.Hex(), "0x" + strings.ToUpper(h2.Hex()[2:]), strings.ToLower(h1.Hex())}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	report, err := ReconcilePush(context.Background(), client, strings.ToLower(tokenAddr.Hex()), testManifest(false), hashes, Options{Now: func() time.Time { return at }})
	require.NoError(t, err)

	require.Equal(t, model.ReconcileCompleted, report.Status)
	require.True(t, report.Success)
	require.Equal(t, 3, report.ConfirmedTransfers)
	require.Equal(t, "6000", report.TotalAmountFound)
	require.Equal(t, tokenAddr.Hex(), report.Token)
	require.Equal(t, "2024-05-01T12:00:00Z", report.ReconciledAt)

	require.Len(t, report.Transactions, 2)
	require.Equal(t, h1.Hex(), report.Transactions[0].Hash)
	require.Equal(t, 2, report.Transactions[0].Transfers)
	require.Equal(t, uint64(100), report.Transactions[0].BlockNumber)
	require.Equal(t, h2.Hex(), report.Transactions[1].Hash)

	require.Equal(t, 2, report.Recipients[1].Transfers)
	require.Equal(t, "2000", report.Recipients[1].Received)
	require.Equal(t, 1, report.UnexpectedTransfers)
	require.Equal(t, "6000", report.UnexpectedAmount)
}

func TestFailuresOnlyDemoteTheirTransaction(t *testing.T) {
	client := newFakeClient()
	ok, reverted, missing, broken := hashOf(1), hashOf(2), hashOf(3), hashOf(4)
	client.add(ok, types.ReceiptStatusSuccessful, transferLog(tokenAddr, winnerA, 1000))
	client.add(reverted, types.ReceiptStatusFailed, transferLog(tokenAddr, winnerC, 3000))
	client.errs[missing] = errors.New("rpc timeout")

	bad := transferLog(tokenAddr, winnerB, 0)
	bad.Data = []byte{0x01}
	client.add(broken, types.ReceiptStatusSuccessful, transferLog(tokenAddr, winnerB, 2000), bad)

	hashes := []string{ok.Hex(), reverted.Hex(), missing.Hex(), broken.Hex(), "0xdeadbeef"}
	report, err := ReconcilePush(context.Background(), client, tokenAddr.Hex(), testManifest(false), hashes, Options{Concurrency: 2})
	require.NoError(t, err)

	require.Equal(t, model.ReconcilePartial, report.Status)
	require.False(t, report.Success)
	require.Equal(t, 1, report.ConfirmedTransfers)
	require.Equal(t, 2, report.FailedTransfers)
	require.Equal(t, "1000", report.TotalAmountFound)

	got := make([]model.TxStatus, len(report.Transactions))
	for i, tx := range report.Transactions {
		got[i] = tx.Status
	}
	require.Equal(t, []model.TxStatus{model.TxSuccess, model.TxReverted, model.TxMissing, model.TxUndecodable, model.TxMissing}, got)
	require.Equal(t, "rpc timeout", report.Transactions[2].Error)
	require.Equal(t, "invalid transaction hash", report.Transactions[4].Error)
	require.Equal(t, []model.RecipientStatus{model.RecipientConfirmed, model.RecipientMissing, model.RecipientMissing}, statuses(report))
}

func TestOverAndUnderPayment(t *testing.T) {
	client := newFakeClient()
	h := hashOf(7)
	client.add(h, types.ReceiptStatusSuccessful,
		transferLog(tokenAddr, winnerA, 1500),
		transferLog(tokenAddr, winnerB, 1000),
		transferLog(tokenAddr, winnerC, 3000),
	)

	report, err := ReconcilePush(context.Background(), client, tokenAddr.Hex(), testManifest(false), []string{h.Hex()}, Options{})
	require.NoError(t, err)
	require.Equal(t, []model.RecipientStatus{model.RecipientOverpaid, model.RecipientUnderpaid, model.RecipientConfirmed}, statuses(report))
	require.True(t, report.Recipients[0].Confirmed)
	require.False(t, report.Recipients[1].Confirmed)
	require.Equal(t, 2, report.ConfirmedTransfers)
	require.Equal(t, model.ReconcilePartial, report.Status)
	require.Equal(t, "5500", report.TotalAmountFound)
}

func TestRevertBlocksCompletion(t *testing.T) {
	client := newFakeClient()
	paid, reverted := hashOf(1), hashOf(2)
	client.add(paid, types.ReceiptStatusSuccessful,
		transferLog(tokenAddr, winnerA, 1000),
		transferLog(tokenAddr, winnerB, 2000),
		transferLog(tokenAddr, winnerC, 3000),
	)
	client.add(reverted, types.ReceiptStatusFailed)

	report, err := ReconcilePush(context.Background(), client, tokenAddr.Hex(), testManifest(false), []string{paid.Hex(), reverted.Hex()}, Options{})
	require.NoError(t, err)
	require.Equal(t, 3, report.ConfirmedTransfers)
	require.Equal(t, model.ReconcilePartial, report.Status)
	require.False(t, report.Success)

	report, err = ReconcilePush(context.Background(), client, tokenAddr.Hex(), testManifest(false), []string{reverted.Hex()}, Options{})
	require.NoError(t, err)
	require.Equal(t, model.ReconcileFailed, report.Status)
}

func TestWaitsForConfirmations(t *testing.T) {
	client := newFakeClient()
	h := hashOf(1)
	client.add(h, types.ReceiptStatusSuccessful, transferLog(tokenAddr, winnerA, 1000))

	_, err := ReconcilePush(context.Background(), client, tokenAddr.Hex(), testManifest(false), []string{h.Hex()}, Options{Confirmations: 3})
	require.NoError(t, err)
	require.Equal(t, []uint64{3}, client.waited)
}

func TestNativePayouts(t *testing.T) {
	base := newFakeClient()
	direct, batch, unknown := hashOf(1), hashOf(2), hashOf(3)
	base.add(direct, types.ReceiptStatusSuccessful)
	base.add(batch, types.ReceiptStatusSuccessful)
	base.add(unknown, types.ReceiptStatusSuccessful)

	airdrop := otherAddr
	data, err := token.PackDisperseEther([]common.Address{winnerB, winnerC}, []*big.Int{big.NewInt(2000), big.NewInt(3000)})
	require.NoError(t, err)

	client := &nativeClient{fakeClient: base, txs: map[common.Hash]*types.Transaction{
		direct:  types.NewTx(&types.LegacyTx{To: &winnerA, Value: big.NewInt(1000)}),
		batch:   types.NewTx(&types.LegacyTx{To: &airdrop, Value: big.NewInt(5000), Data: data}),
		unknown: types.NewTx(&types.LegacyTx{To: &airdrop, Data: []byte{0xde, 0xad, 0xbe, 0xef}}),
	}}

	report, err := ReconcilePush(context.Background(), client, "", testManifest(true), []string{direct.Hex(), batch.Hex(), unknown.Hex()}, Options{})
	require.NoError(t, err)
	require.Equal(t, 3, report.ConfirmedTransfers)
	require.Equal(t, "ETH", report.Token)
	require.Equal(t, model.TxUndecodable, report.Transactions[2].Status)
	require.Equal(t, model.ReconcileCompleted, report.Status)

	report, err = ReconcilePush(context.Background(), base, "", testManifest(true), []string{direct.Hex()}, Options{})
	require.NoError(t, err)
	require.Equal(t, model.TxUndecodable, report.Transactions[0].Status)
	require.Equal(t, model.ReconcileFailed, report.Status)
}

func TestDeterministicAssembly(t *testing.T) {
	client := newFakeClient()
	client.delay = func(h common.Hash) time.Duration {
		return time.Duration(50-h.Big().Int64()) * time.Millisecond / 10
	}
	hashes := make([]string, 0, 40)
	for i := int64(1); i <= 40; i++ {
		h := hashOf(i)
		client.add(h, types.ReceiptStatusSuccessful)
		hashes = append(hashes, h.Hex())
	}

	report, err := ReconcilePush(context.Background(), client, tokenAddr.Hex(), testManifest(false), hashes, Options{Concurrency: 6})
	require.NoError(t, err)
	require.Len(t, report.Transactions, 40)
	for i, tx := range report.Transactions {
		require.Equal(t, hashes[i], tx.Hash)
	}
}

func TestArgumentErrors(t *testing.T) {
	_, err := ReconcilePush(context.Background(), nil, tokenAddr.Hex(), testManifest(false), nil, Options{})
	require.ErrorIs(t, err, ErrNilClient)

	_, err = ReconcilePush(context.Background(), newFakeClient(), "0x12", testManifest(false), nil, Options{})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ReconcilePush(ctx, newFakeClient(), tokenAddr.Hex(), testManifest(false), []string{hashOf(1).Hex()}, Options{})
	require.ErrorIs(t, err, context.Canceled)
}
