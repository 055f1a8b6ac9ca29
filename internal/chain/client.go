package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	defaultPollInterval    = time.Second
	defaultMaxPollInterval = 15 * time.Second
	defaultMaxRetries      = 3
	defaultReceiptTimeout  = 2 * time.Minute
)

// backend is the subset of ethclient.Client the payout pipeline uses.
type backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	eth       backend

	pollInterval    time.Duration
	maxPollInterval time.Duration
	maxRetries      int
	receiptTimeout  time.Duration

	mu      sync.RWMutex
	chainID *big.Int
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "dial rpc")
	}

	c := newClient(ethclient.NewClient(rpcClient))
	c.rpcClient = rpcClient
	return c, nil
}

func newClient(b backend) *Client {
	return &Client{
		eth:             b,
		pollInterval:    defaultPollInterval,
		maxPollInterval: defaultMaxPollInterval,
		maxRetries:      defaultMaxRetries,
		receiptTimeout:  defaultReceiptTimeout,
	}
}

// SetPolling configures receipt polling. Zero values keep the defaults.
func (c *Client) SetPolling(interval, maxInterval time.Duration, maxRetries int) {
	if interval > 0 {
		c.pollInterval = interval
	}
	if maxInterval > 0 {
		c.maxPollInterval = maxInterval
	}
	if maxRetries >= 0 {
		c.maxRetries = maxRetries
	}
}

// SetReceiptTimeout bounds how long WaitForTransactionReceipt waits for a
// receipt. Zero waits until the context ends.
func (c *Client) SetReceiptTimeout(timeout time.Duration) {
	if timeout >= 0 {
		c.receiptTimeout = timeout
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain ID, cached after the first successful call.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.RLock()
	cached := c.chainID
	c.mu.RUnlock()
	if cached != nil {
		return new(big.Int).Set(cached), nil
	}

	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "chain id")
	}
	c.mu.Lock()
	c.chainID = new(big.Int).Set(id)
	c.mu.Unlock()
	return id, nil
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// HeaderByNumber returns the block header by number.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.eth.HeaderByNumber(ctx, number)
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, blockNumber)
}

// TransactionReceipt fetches a receipt, retrying transient RPC failures. A
// receipt that does not exist yet is returned as ethereum.NotFound at once.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := withRetry(ctx, c.maxRetries, c.pollInterval, func(ctx context.Context) error {
		r, err := c.eth.TransactionReceipt(ctx, hash)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "receipt %s", hash.Hex())
	}
	return receipt, nil
}

// WaitForTransactionReceipt polls until the transaction is mined and buried
// under confirmations-1 further blocks. A transaction still unknown when the
// receipt timeout elapses is reported as ethereum.NotFound.
func (c *Client) WaitForTransactionReceipt(ctx context.Context, hash common.Hash, confirmations uint64) (*types.Receipt, error) {
	if confirmations == 0 {
		confirmations = 1
	}

	var receipt *types.Receipt
	err := poll(ctx, c.pollInterval, c.maxPollInterval, c.receiptTimeout, func(ctx context.Context) (bool, error) {
		r, err := c.eth.TransactionReceipt(ctx, hash)
		if err != nil {
			return false, err
		}
		if confirmations > 1 {
			head, err := c.eth.BlockNumber(ctx)
			if err != nil {
				return false, err
			}
			if r.BlockNumber == nil || head+1 < r.BlockNumber.Uint64()+confirmations {
				return false, nil
			}
		}
		receipt = r
		return true, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "wait for receipt %s", hash.Hex())
	}
	return receipt, nil
}

// TransactionByHash returns the transaction body.
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	return c.eth.TransactionByHash(ctx, hash)
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.eth.SendTransaction(ctx, tx)
}

// PendingNonceAt returns the next nonce for account including pending txs.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.eth.PendingNonceAt(ctx, account)
}

// SuggestGasPrice returns the node's legacy gas price suggestion.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

// SuggestGasTipCap returns the node's priority fee suggestion.
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasTipCap(ctx)
}
