package amount

import (
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestDecimalToWei(t *testing.T) {
	tests := []struct {
		value    string
		decimals uint8
		want     string
	}{
		{"0", 18, "0"},
		{"1", 18, "1000000000000000000"},
		{"1.5", 18, "1500000000000000000"},
		{"0.000000000000000001", 18, "1"},
		{"0.0000000000000000019", 18, "1"},
		{"1.999999", 2, "199"},
		{"123.456", 0, "123"},
		{".5", 6, "500000"},
		{"5.", 6, "5000000"},
		{"+2", 6, "2000000"},
		{" 10.25 ", 6, "10250000"},
		{"0.1", 18, "100000000000000000"},
		{"115792089237316195423570985008687907853269984665640564039457.584007913129639935", 18, "115792089237316195423570985008687907853269984665640564039457584007913129639935"},
	}

	for _, tt := range tests {
		got, err := DecimalToWei(tt.value, tt.decimals)
		if err != nil {
			t.Fatalf("DecimalToWei(%q, %d): unexpected error: %v", tt.value, tt.decimals, err)
		}
		if got.String() != tt.want {
			t.Fatalf("DecimalToWei(%q, %d) = %s, want %s", tt.value, tt.decimals, got, tt.want)
		}
	}
}

func TestDecimalToWeiTruncatesNeverRounds(t *testing.T) {
	for _, value := range []string{"0.99999999", "1.0000009", "2.5555555555"} {
		for decimals := uint8(0); decimals <= 6; decimals++ {
			got, err := DecimalToWei(value, decimals)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			exact, _ := new(big.Rat).SetString(value)
			scaled := new(big.Rat).Mul(exact, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)))
			floor := new(big.Int).Quo(scaled.Num(), scaled.Denom())
			if got.Cmp(floor) != 0 {
				t.Fatalf("DecimalToWei(%q, %d) = %s, want floor %s", value, decimals, got, floor)
			}
		}
	}
}

func TestDecimalToWeiRejects(t *testing.T) {
	for _, value := range []string{"", ".", "abc", "1.2.3", "1e18", "1,000", "0x10"} {
		if _, err := DecimalToWei(value, 18); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("DecimalToWei(%q): expected ErrInvalidAmount, got %v", value, err)
		}
	}
	if _, err := DecimalToWei("-1", 18); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if _, err := DecimalToWei("1", 78); !errors.Is(err, ErrTooManyDecimal) {
		t.Fatalf("expected ErrTooManyDecimal, got %v", err)
	}
}

func TestFloatToWei(t *testing.T) {
	got, err := FloatToWei(0.1, 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != "100000000000000000" {
		t.Fatalf("FloatToWei(0.1) = %s", got)
	}
}

func TestTruncate(t *testing.T) {
	got, err := Truncate("1.23456789", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "1.2345" {
		t.Fatalf("Truncate = %s", got)
	}
}

func TestFormatWei(t *testing.T) {
	tests := []struct {
		value    *big.Int
		decimals uint8
		want     string
	}{
		{big.NewInt(1500000), 6, "1.5"},
		{big.NewInt(1000000), 6, "1"},
		{big.NewInt(0), 6, "0"},
		{big.NewInt(42), 0, "42"},
		{big.NewInt(-25), 1, "-2.5"},
		{nil, 18, "0"},
	}
	for _, tt := range tests {
		if got := FormatWei(tt.value, tt.decimals); got != tt.want {
			t.Fatalf("FormatWei(%v, %d) = %s, want %s", tt.value, tt.decimals, got, tt.want)
		}
	}
}

func TestSum(t *testing.T) {
	got, err := Sum("1", "2", "300000000000000000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.String() != "300000000000000000003" {
		t.Fatalf("Sum = %s", got)
	}
	if _, err := Sum("1", "1.5"); err == nil {
		t.Fatalf("expected error for fractional value")
	}
}
