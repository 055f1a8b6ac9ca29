package address

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
)

const hexLength = 2 * common.AddressLength

// ValidateAndChecksum returns the EIP-55 checksummed form of input. The 0x prefix
// is optional and letter case is ignored. It reports false for anything that is
// not exactly 40 hex characters.
func ValidateAndChecksum(input string) (string, bool) {
	body := strings.TrimSpace(input)
	if len(body) >= 2 && body[0] == '0' && (body[1] == 'x' || body[1] == 'X') {
		body = body[2:]
	}
	if len(body) != hexLength {
		return "", false
	}
	for i := 0; i < len(body); i++ {
		if !isHexChar(body[i]) {
			return "", false
		}
	}
	return common.HexToAddress(body).Hex(), true
}

// Parse converts input into a common.Address.
func Parse(input string) (common.Address, error) {
	checksummed, ok := ValidateAndChecksum(input)
	if !ok {
		return common.Address{}, errors.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(checksummed), nil
}

// ParseList converts string addresses into common.Address, skipping blanks.
func ParseList(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input) == "" {
			continue
		}
		addr, err := Parse(input)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

// Equal reports whether a and b are valid and name the same account.
func Equal(a, b string) bool {
	na, ok := ValidateAndChecksum(a)
	if !ok {
		return false
	}
	nb, ok := ValidateAndChecksum(b)
	return ok && na == nb
}

func isHexChar(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
