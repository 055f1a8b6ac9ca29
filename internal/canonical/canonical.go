// Package canonical produces one textual JSON form per semantically equal value
// graph so it can be used as a hash pre-image.
package canonical

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/crypto"
)

// JSON encodes value with object keys sorted at every depth. Arrays keep their
// order and numbers keep their literal text.
func JSON(value any) ([]byte, error) {
	first, err := encode(value)
	if err != nil {
		return nil, errors.Wrap(err, "marshal value")
	}

	dec := json.NewDecoder(bytes.NewReader(first))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, errors.Wrap(err, "decode value")
	}

	// encoding/json writes map keys in sorted order.
	out, err := encode(generic)
	if err != nil {
		return nil, errors.Wrap(err, "marshal canonical value")
	}
	return out, nil
}

// Hash returns the 0x-prefixed Keccak-256 digest of data.
func Hash(data []byte) string {
	return crypto.Keccak256Hash(data).Hex()
}

// HashValue hashes the canonical JSON form of value.
func HashValue(value any) (string, error) {
	data, err := JSON(value)
	if err != nil {
		return "", err
	}
	return Hash(data), nil
}

func encode(value any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
