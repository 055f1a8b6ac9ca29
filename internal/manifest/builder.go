package manifest

import (
	"maps"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"payoutScope/internal/address"
	"payoutScope/internal/amount"
	"payoutScope/internal/model"
)

var (
	ErrMissingToken = errors.New("token is required")
	ErrInvalidToken = errors.New("invalid token")
)

// Options configures a manifest build.
type Options struct {
	Token     *model.TokenInfo
	RoundID   string
	GroupID   string
	CreatedBy string
	// ClampDecimals truncates each human amount to this many fractional digits
	// before conversion.
	ClampDecimals *uint8
	Execution     *model.ExecutionOptions
}

// Rejection explains why an input row was skipped.
type Rejection struct {
	Row     int    `json:"row"`
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// Result is the output of a build.
type Result struct {
	Manifest          model.PayoutManifest
	RejectedAddresses []string
	RejectedRows      []Rejection
}

// Builder builds payout manifests. Now and NewID are injectable so tests can
// pin the volatile fields.
type Builder struct {
	Now    func() time.Time
	NewID  func() string
	Logger *zap.Logger
}

// NewBuilder returns a Builder using wall-clock time and random UUIDs.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		Now:    time.Now,
		NewID:  uuid.NewString,
		Logger: logger,
	}
}

// BuildManifest builds a manifest with a default Builder.
func BuildManifest(rows []model.WinnerRow, opts Options) (Result, error) {
	return NewBuilder(nil).Build(rows, opts)
}

// Build normalises rows into a manifest. Bad rows are collected, never fatal;
// only invalid options return an error.
func (b *Builder) Build(rows []model.WinnerRow, opts Options) (Result, error) {
	token, err := validateOptions(opts)
	if err != nil {
		return Result{}, err
	}

	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	result := Result{
		RejectedAddresses: make([]string, 0),
		RejectedRows:      make([]Rejection, 0),
	}
	reject := func(row int, raw string, reason string) {
		result.RejectedAddresses = append(result.RejectedAddresses, raw)
		result.RejectedRows = append(result.RejectedRows, Rejection{Row: row, Address: raw, Reason: reason})
		logger.Debug("row rejected", zap.Int("row", row), zap.String("address", raw), zap.String("reason", reason))
	}

	winners := make([]model.NormalizedWinner, 0, len(rows))
	amounts := make([]*big.Int, 0, len(rows))
	seen := make(map[string]int, len(rows))

	for i, row := range rows {
		addr, ok := address.ValidateAndChecksum(row.Address)
		if !ok {
			reject(i, row.Address, "invalid address")
			continue
		}

		value := row.Amount.String()
		if opts.ClampDecimals != nil {
			value, err = amount.Truncate(value, *opts.ClampDecimals)
			if err != nil {
				reject(i, row.Address, err.Error())
				continue
			}
		}
		wei, err := amount.DecimalToWei(value, token.Decimals)
		if err != nil {
			reject(i, row.Address, err.Error())
			continue
		}

		if pos, dup := seen[addr]; dup {
			amounts[pos].Add(amounts[pos], wei)
			winners[pos].Sources = append(winners[pos].Sources, i)
			continue
		}

		seen[addr] = len(winners)
		amounts = append(amounts, wei)
		winners = append(winners, model.NormalizedWinner{
			Address:  addr,
			Rank:     row.Rank,
			ID:       row.ID,
			Token:    token.Ref(),
			Metadata: maps.Clone(row.Metadata),
			Sources:  []int{i},
		})
	}

	total := big.NewInt(0)
	for i := range winners {
		winners[i].Amount = amounts[i].String()
		total.Add(total, amounts[i])
	}

	m := model.PayoutManifest{
		ID:          b.newID(),
		Winners:     winners,
		Token:       token,
		TotalAmount: total.String(),
		CreatedBy:   opts.CreatedBy,
		CreatedAt:   b.now().UTC().Format(time.RFC3339Nano),
		RoundID:     opts.RoundID,
		GroupID:     opts.GroupID,
		Version:     model.ManifestVersion,
		Totals: model.ManifestTotals{
			AmountWei:  total.String(),
			Recipients: len(winners),
		},
	}
	if opts.Execution != nil {
		execution := *opts.Execution
		m.Options = &execution
	}

	hash, err := ComputeHash(m)
	if err != nil {
		return Result{}, errors.Wrap(err, "hash manifest")
	}
	m.Hash = hash
	result.Manifest = m

	logger.Info("manifest built",
		zap.String("manifest_id", m.ID),
		zap.Int("rows", len(rows)),
		zap.Int("winners", len(winners)),
		zap.Int("rejected", len(result.RejectedAddresses)),
		zap.String("total", amount.FormatWei(total, token.Decimals)),
		zap.String("symbol", token.Symbol),
		zap.String("hash", hash),
	)

	return result, nil
}

func (b *Builder) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

func (b *Builder) newID() string {
	if b.NewID == nil {
		return uuid.NewString()
	}
	return b.NewID()
}

func validateOptions(opts Options) (model.TokenInfo, error) {
	if opts.Token == nil {
		return model.TokenInfo{}, ErrMissingToken
	}
	token := *opts.Token
	if token.Decimals > amount.MaxDecimals {
		return model.TokenInfo{}, errors.Wrapf(ErrInvalidToken, "decimals %d out of range", token.Decimals)
	}
	if token.IsNative && token.Address == "" {
		return token, nil
	}
	checksummed, ok := address.ValidateAndChecksum(token.Address)
	if !ok {
		return model.TokenInfo{}, errors.Wrapf(ErrInvalidToken, "address %q", token.Address)
	}
	token.Address = checksummed
	return token, nil
}
