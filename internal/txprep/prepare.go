package txprep

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/samber/lo"

	"payoutScope/internal/address"
	"payoutScope/internal/amount"
	"payoutScope/internal/model"
	"payoutScope/internal/token"
)

const (
	// DefaultMaxPerBatch is used when no batch size is configured.
	DefaultMaxPerBatch = 200
	// MaxBatchRecipients is the largest batch the disperse contract accepts
	// within a block gas limit.
	MaxBatchRecipients = 500

	GasNativeTransfer = 21_000
	GasERC20Transfer  = 65_000
	GasApprove        = 50_000
	GasBatchBase      = 60_000
	GasBatchNative    = 10_000
	GasBatchToken     = 35_000
)

// DefaultMaxGasCostWei is the gas cost (0.5 native units) above which a plan
// gets a warning.
var DefaultMaxGasCostWei = new(big.Int).Mul(big.NewInt(5), new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil))

// Options configures plan preparation. Zero fields fall back to the manifest's
// own token and execution options.
type Options struct {
	Token          *model.TokenInfo
	MaxPerBatch    int
	SingleApproval bool
	Airdrop        string
	StartingNonce  *uint64
	GasPrice       *big.Int
	MaxGasCostWei  *big.Int
}

type recipient struct {
	address common.Address
	amount  *big.Int
}

type planner struct {
	manifest model.PayoutManifest
	token    model.TokenInfo
	opts     Options
	errs     []string
	warnings []string
}

func (p *planner) fail(format string, args ...any) {
	p.errs = append(p.errs, fmt.Sprintf(format, args...))
}

func (p *planner) warn(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

// PreparePushTxs turns a manifest into an ordered transaction plan. It never
// fails: every problem is reported through the plan's Validation so callers
// can inspect it before spending gas.
func PreparePushTxs(m model.PayoutManifest, opts Options) model.PreparedPayout {
	p := &planner{manifest: m, token: m.Token, opts: withManifestDefaults(m, opts)}
	if opts.Token != nil {
		p.token = *opts.Token
	}

	txs := p.build()
	p.checkTotals(txs)
	p.assignNonces(txs)
	p.applyGas(txs)

	return model.PreparedPayout{
		ManifestID: m.ID,
		Txs:        txs,
		Validation: model.Validation{
			IsValid:  len(p.errs) == 0,
			Errors:   lo.Ternary(p.errs == nil, []string{}, p.errs),
			Warnings: lo.Ternary(p.warnings == nil, []string{}, p.warnings),
		},
	}
}

func withManifestDefaults(m model.PayoutManifest, opts Options) Options {
	if m.Options == nil {
		return opts
	}
	if opts.Airdrop == "" {
		opts.Airdrop = m.Options.Airdrop
		opts.SingleApproval = opts.SingleApproval || m.Options.SingleApproval
	}
	if opts.MaxPerBatch == 0 {
		opts.MaxPerBatch = m.Options.MaxPerBatch
	}
	return opts
}

func (p *planner) build() []model.PreparedTx {
	var tokenAddr common.Address
	if !p.token.IsNative {
		parsed, err := address.Parse(p.token.Address)
		if err != nil {
			p.fail("invalid token address %q", p.token.Address)
			return []model.PreparedTx{}
		}
		tokenAddr = parsed
	}

	recipients := p.recipients()
	if len(p.manifest.Winners) == 0 {
		p.warn("manifest has no winners")
	}

	if p.opts.Airdrop == "" {
		return p.direct(tokenAddr, recipients)
	}
	if !p.opts.SingleApproval {
		p.warn("airdrop contract %s ignored without singleApproval; preparing direct transfers", p.opts.Airdrop)
		return p.direct(tokenAddr, recipients)
	}
	airdrop, err := address.Parse(p.opts.Airdrop)
	if err != nil {
		p.fail("invalid airdrop address %q", p.opts.Airdrop)
		return []model.PreparedTx{}
	}
	return p.batched(tokenAddr, airdrop, recipients)
}

func (p *planner) recipients() []recipient {
	out := make([]recipient, 0, len(p.manifest.Winners))
	for i, w := range p.manifest.Winners {
		addr, ok := address.ValidateAndChecksum(w.Address)
		if !ok {
			p.fail("winner %d: invalid recipient address %q", i, w.Address)
			continue
		}
		value, err := amount.ParseWei(w.Amount)
		if err != nil {
			p.fail("winner %d: amount %q is not an integer", i, w.Amount)
			continue
		}
		if value.Sign() == 0 {
			p.warn("winner %d: %s has a zero amount and is skipped", i, addr)
			continue
		}
		out = append(out, recipient{address: common.HexToAddress(addr), amount: value})
	}
	return out
}

func (p *planner) direct(tokenAddr common.Address, recipients []recipient) []model.PreparedTx {
	txs := make([]model.PreparedTx, 0, len(recipients))
	for _, r := range recipients {
		tx := model.PreparedTx{
			Kind:       model.TxKindTransfer,
			Amount:     r.amount.String(),
			Recipients: []string{r.address.Hex()},
			ChainID:    p.token.ChainID,
		}
		if p.token.IsNative {
			tx.To = r.address.Hex()
			tx.Value = r.amount.String()
			tx.Data = "0x"
			tx.GasLimit = GasNativeTransfer
		} else {
			data, err := token.PackTransfer(r.address, r.amount)
			if err != nil {
				p.fail("encode transfer to %s: %v", r.address.Hex(), err)
				continue
			}
			tx.To = tokenAddr.Hex()
			tx.Value = "0"
			tx.Data = hexutil.Encode(data)
			tx.GasLimit = GasERC20Transfer
		}
		tx.Index = len(txs)
		txs = append(txs, tx)
	}
	return txs
}

func (p *planner) batched(tokenAddr, airdrop common.Address, recipients []recipient) []model.PreparedTx {
	size := p.opts.MaxPerBatch
	if size <= 0 {
		size = DefaultMaxPerBatch
	}
	if size > MaxBatchRecipients {
		p.fail("maxPerBatch %d exceeds the batch limit of %d", size, MaxBatchRecipients)
	}

	txs := make([]model.PreparedTx, 0, len(recipients)/size+2)
	if len(recipients) == 0 {
		return txs
	}

	if !p.token.IsNative {
		total := big.NewInt(0)
		for _, r := range recipients {
			total.Add(total, r.amount)
		}
		data, err := token.PackApprove(airdrop, total)
		if err != nil {
			p.fail("encode approve: %v", err)
			return txs
		}
		txs = append(txs, model.PreparedTx{
			Index:    0,
			Kind:     model.TxKindApprove,
			To:       tokenAddr.Hex(),
			Value:    "0",
			Data:     hexutil.Encode(data),
			Amount:   "0",
			GasLimit: GasApprove,
			ChainID:  p.token.ChainID,
		})
	}

	for n, batch := range lo.Chunk(recipients, size) {
		if len(batch) > MaxBatchRecipients {
			p.fail("batch %d has %d recipients, limit is %d", n, len(batch), MaxBatchRecipients)
		}
		addrs := lo.Map(batch, func(r recipient, _ int) common.Address { return r.address })
		values := lo.Map(batch, func(r recipient, _ int) *big.Int { return r.amount })
		sum := big.NewInt(0)
		for _, v := range values {
			sum.Add(sum, v)
		}

		tx := model.PreparedTx{
			Index:      len(txs),
			Kind:       model.TxKindBatch,
			To:         airdrop.Hex(),
			Amount:     sum.String(),
			Recipients: lo.Map(addrs, func(a common.Address, _ int) string { return a.Hex() }),
			ChainID:    p.token.ChainID,
		}

		var data []byte
		var err error
		if p.token.IsNative {
			data, err = token.PackDisperseEther(addrs, values)
			tx.Value = sum.String()
			tx.GasLimit = GasBatchBase + GasBatchNative*uint64(len(batch))
		} else {
			data, err = token.PackDisperseToken(tokenAddr, addrs, values)
			tx.Value = "0"
			tx.GasLimit = GasBatchBase + GasBatchToken*uint64(len(batch))
		}
		if err != nil {
			p.fail("encode batch %d: %v", n, err)
			continue
		}
		tx.Data = hexutil.Encode(data)
		txs = append(txs, tx)
	}
	return txs
}

func (p *planner) checkTotals(txs []model.PreparedTx) {
	expected, err := amount.ParseWei(p.manifest.TotalAmount)
	if err != nil {
		p.fail("manifest totalAmount %q is not an integer", p.manifest.TotalAmount)
		return
	}
	prepared := big.NewInt(0)
	for _, tx := range txs {
		if v, ok := new(big.Int).SetString(tx.Amount, 10); ok {
			prepared.Add(prepared, v)
		}
	}
	if prepared.Cmp(expected) != 0 {
		p.fail("prepared amount %s does not equal manifest total %s", prepared, expected)
	}
}

func (p *planner) assignNonces(txs []model.PreparedTx) {
	if p.opts.StartingNonce == nil {
		return
	}
	next := *p.opts.StartingNonce
	for i := range txs {
		nonce := next
		txs[i].Nonce = &nonce
		next++
	}
}

func (p *planner) applyGas(txs []model.PreparedTx) {
	if len(txs) == 0 {
		return
	}
	if p.opts.GasPrice == nil || p.opts.GasPrice.Sign() <= 0 {
		p.warn("no gas price supplied; gas cost not estimated")
		return
	}

	gasUnits := new(big.Int)
	for i := range txs {
		txs[i].GasPrice = p.opts.GasPrice.String()
		gasUnits.Add(gasUnits, new(big.Int).SetUint64(txs[i].GasLimit))
	}
	cost := new(big.Int).Mul(gasUnits, p.opts.GasPrice)

	limit := p.opts.MaxGasCostWei
	if limit == nil {
		limit = DefaultMaxGasCostWei
	}
	if cost.Cmp(limit) > 0 {
		p.warn("estimated gas cost %s wei exceeds %s wei", cost, limit)
	}
}
