package address

import "testing"

func TestValidateAndChecksum(t *testing.T) {
	const want = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{name: "checksummed", input: want, ok: true},
		{name: "lower case", input: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", ok: true},
		{name: "upper case body", input: "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", ok: true},
		{name: "no prefix", input: "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", ok: true},
		{name: "upper prefix", input: "0X5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", ok: true},
		{name: "surrounding space", input: "  0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed\n", ok: true},
		{name: "too short", input: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1bea", ok: false},
		{name: "too long", input: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed00", ok: false},
		{name: "non hex", input: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaeg", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "prefix only", input: "0x", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ValidateAndChecksum(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok mismatch: %v != %v", ok, tt.ok)
			}
			if ok && got != want {
				t.Fatalf("checksum mismatch: %s != %s", got, want)
			}
			if !ok && got != "" {
				t.Fatalf("expected empty result, got %s", got)
			}
		})
	}
}

func TestEqualIgnoresCase(t *testing.T) {
	if !Equal("0xAbCdEf0123456789abcdef0123456789ABCDEF01", "abcdef0123456789ABCDEF0123456789abcdef01") {
		t.Fatalf("expected case variants to be equal")
	}
	if Equal("0x1", "0x1") {
		t.Fatalf("invalid addresses must never be equal")
	}
}

func TestParseList(t *testing.T) {
	got, err := ParseList([]string{"0x1111111111111111111111111111111111111111", " ", "2222222222222222222222222222222222222222"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 addresses, got %d", len(got))
	}
	if _, err := ParseList([]string{"0xnope"}); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}
