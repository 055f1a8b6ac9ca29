package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"payoutScope/internal/model"
)

func TestJsonlJournalAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.jsonl")
	sink := NewJsonlStorage(path)

	first := []model.ExecutionResult{{Index: 0, Kind: model.TxKindApprove, Hash: "0x01", Success: true}}
	second := []model.ExecutionResult{
		{Index: 1, Kind: model.TxKindBatch, Error: "nonce too low"},
		{Index: 2, Kind: model.TxKindBatch, Hash: "0x03", Success: true},
	}
	if err := sink.PutResults(first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := sink.PutResults(nil); err != nil {
		t.Fatalf("put empty: %v", err)
	}
	if err := sink.PutResults(second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	got, err := ReadResults(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := append(first, second...)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("results mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestReadResultsMissingJournal(t *testing.T) {
	got, err := ReadResults(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}

func TestReadResultsRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	if err := os.WriteFile(path, []byte("{\"index\":0}\nnot json\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadResults(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestWriteReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "manifest.json")

	var missing model.PayoutManifest
	ok, err := ReadJSON(path, &missing)
	if err != nil || ok {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}
	if _, err := LoadManifest(path); err == nil {
		t.Fatalf("expected error for missing manifest")
	}

	m := model.PayoutManifest{
		ID:          "m-1",
		TotalAmount: "15",
		Version:     model.ManifestVersion,
		Winners:     []model.NormalizedWinner{{Address: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", Amount: "15", Sources: []int{0, 2}}},
		Totals:      model.ManifestTotals{AmountWei: "15", Recipients: 1},
	}
	if err := WriteJSON(path, m); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}

	got, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("manifest mismatch:\n got %+v\nwant %+v", got, m)
	}
}

func TestLoadRowsAcceptsNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	body := `[{"address":"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed","amount":1.25,"rank":1},{"address":"x","amount":"3","rank":2,"metadata":{"k":"v"}}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rows, err := LoadRows(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 2 || rows[0].Amount != "1.25" || rows[1].Metadata["k"] != "v" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}
