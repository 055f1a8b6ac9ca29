package canonical

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
)

func TestJSONSortsKeysRecursively(t *testing.T) {
	value := map[string]any{
		"b": 1,
		"a": map[string]any{"z": true, "y": []any{map[string]any{"d": 1, "c": 2}, "x"}},
		"c": "<tag>&",
	}

	got, err := JSON(value)
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}

	want := `{"a":{"y":[{"c":2,"d":1},"x"],"z":true},"b":1,"c":"<tag>&"}`
	if string(got) != want {
		t.Fatalf("canonical mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestJSONInvariantUnderKeyOrder(t *testing.T) {
	docs := []string{
		`{"winners":[{"address":"0x1","amount":"10"},{"amount":"5","address":"0x2"}],"roundId":"r1","token":{"symbol":"USDC","decimals":6}}`,
		`{"token":{"decimals":6,"symbol":"USDC"},"roundId":"r1","winners":[{"amount":"10","address":"0x1"},{"address":"0x2","amount":"5"}]}`,
	}

	var outputs []string
	for _, doc := range docs {
		var value any
		if err := json.Unmarshal([]byte(doc), &value); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got, err := JSON(value)
		if err != nil {
			t.Fatalf("canonical json: %v", err)
		}
		outputs = append(outputs, string(got))
	}

	if outputs[0] != outputs[1] {
		t.Fatalf("outputs differ:\n%s\n%s", outputs[0], outputs[1])
	}
}

func TestJSONStructAndMapAgree(t *testing.T) {
	type winner struct {
		Amount  string `json:"amount"`
		Address string `json:"address"`
	}

	fromStruct, err := JSON(winner{Amount: "1", Address: "0xabc"})
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	fromMap, err := JSON(map[string]string{"address": "0xabc", "amount": "1"})
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	if string(fromStruct) != string(fromMap) {
		t.Fatalf("struct and map differ: %s != %s", fromStruct, fromMap)
	}
}

func TestJSONKeepsLargeNumbers(t *testing.T) {
	got, err := JSON(json.RawMessage(`{"n":123456789012345678901234567890,"f":1.10}`))
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	if string(got) != `{"f":1.10,"n":123456789012345678901234567890}` {
		t.Fatalf("number changed: %s", got)
	}
}

func TestHashPermutationStable(t *testing.T) {
	keys := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"}
	build := func(order []int) json.RawMessage {
		doc := "{"
		for i, idx := range order {
			if i > 0 {
				doc += ","
			}
			doc += fmt.Sprintf("%q:{\"v\":%d,\"k\":%q}", keys[idx], idx, keys[idx])
		}
		return json.RawMessage(doc + "}")
	}

	identity := []int{0, 1, 2, 3, 4, 5}
	want, err := HashValue(build(identity))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if len(want) != 66 {
		t.Fatalf("unexpected hash length %d", len(want))
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		got, err := HashValue(build(rng.Perm(len(keys))))
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		if got != want {
			t.Fatalf("hash changed under permutation: %s != %s", got, want)
		}
	}
}
