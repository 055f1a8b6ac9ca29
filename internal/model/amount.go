package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// maxLiteralExponent bounds exponent-form number literals that are expanded.
// Anything larger is far outside a uint256 and is kept verbatim so the row is
// rejected later instead of failing the whole decode.
const maxLiteralExponent = 128

// Amount is a decimal amount as entered by a human. It accepts both JSON strings
// and JSON numbers and keeps the literal text so no float conversion happens.
type Amount string

// UnmarshalJSON decodes a string or number literal into Amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}

	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&num); err != nil {
		return errors.Wrap(err, "amount must be a string or number")
	}
	*a = Amount(expandExponent(num.String()))
	return nil
}

// expandExponent rewrites a literal such as 1.5e-3 as plain decimal text.
// The conversion is exact.
func expandExponent(literal string) string {
	if !strings.ContainsAny(literal, "eE") {
		return literal
	}
	d, err := decimal.NewFromString(literal)
	if err != nil {
		return literal
	}
	if exp := d.Exponent(); exp > maxLiteralExponent || exp < -maxLiteralExponent {
		return literal
	}
	return d.String()
}

func (a Amount) String() string {
	return string(a)
}
