package amount

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// MaxDecimals bounds the decimals a token may declare. 10^77 is the largest
// power of ten that fits in a uint256.
const MaxDecimals = 77

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("negative amount")
	ErrTooManyDecimal = errors.New("decimals out of range")
)

var decimalPattern = regexp.MustCompile(`^[0-9]*\.?[0-9]*$`)

// DecimalToWei converts a human decimal string into an integer amount of the
// smallest unit. Digits past decimals are truncated, never rounded.
func DecimalToWei(value string, decimals uint8) (*big.Int, error) {
	if decimals > MaxDecimals {
		return nil, errors.Wrapf(ErrTooManyDecimal, "%d", decimals)
	}
	d, err := parse(value)
	if err != nil {
		return nil, err
	}
	return d.Truncate(int32(decimals)).Shift(int32(decimals)).BigInt(), nil
}

// FloatToWei converts a float using its shortest exact decimal text. Callers
// that can keep the original text should use DecimalToWei instead.
func FloatToWei(value float64, decimals uint8) (*big.Int, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, errors.Wrapf(ErrInvalidAmount, "%v", value)
	}
	return DecimalToWei(strconv.FormatFloat(value, 'f', -1, 64), decimals)
}

// Truncate drops fractional digits beyond places and returns the shortened
// decimal string.
func Truncate(value string, places uint8) (string, error) {
	d, err := parse(value)
	if err != nil {
		return "", err
	}
	return d.Truncate(int32(places)).String(), nil
}

// ParseWei parses a non-negative base-10 integer string.
func ParseWei(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.Wrap(ErrInvalidAmount, "empty")
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidAmount, "not an integer: %s", value)
	}
	if parsed.Sign() < 0 {
		return nil, errors.Wrapf(ErrNegativeAmount, "%s", value)
	}
	return parsed, nil
}

// Sum adds integer strings.
func Sum(values ...string) (*big.Int, error) {
	total := big.NewInt(0)
	for _, v := range values {
		parsed, err := ParseWei(v)
		if err != nil {
			return nil, err
		}
		total.Add(total, parsed)
	}
	return total, nil
}

// FormatWei renders an integer amount as a decimal token amount.
func FormatWei(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(abs, denom)
	text := rat.FloatString(int(decimals))
	text = strings.TrimRight(text, "0")
	text = strings.TrimSuffix(text, ".")
	if sign < 0 {
		return "-" + text
	}
	return text
}

func parse(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	if strings.HasPrefix(s, "-") {
		return decimal.Decimal{}, errors.Wrapf(ErrNegativeAmount, "%q", value)
	}
	s = strings.TrimPrefix(s, "+")
	if !decimalPattern.MatchString(s) || strings.Trim(s, ".") == "" {
		return decimal.Decimal{}, errors.Wrapf(ErrInvalidAmount, "%q", value)
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(ErrInvalidAmount, "%q: %v", value, err)
	}
	return d, nil
}
