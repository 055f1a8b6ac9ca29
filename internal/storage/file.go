package storage

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"

	"payoutScope/internal/model"
)

// WriteJSON writes v as indented JSON, replacing path atomically.
func WriteJSON(path string, v any) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal json")
	}
	data = append(data, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return errors.Wrap(err, "write tmp file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, "rename tmp file")
	}
	return nil
}

// ReadJSON decodes path into v. It reports false when the file does not exist.
func ReadJSON(path string, v any) (bool, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "stat %s", path)
	}
	if stat.IsDir() {
		return false, errors.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "parse %s", path)
	}
	return true, nil
}

// LoadRows reads a JSON array of winner rows.
func LoadRows(path string) ([]model.WinnerRow, error) {
	var rows []model.WinnerRow
	if err := readRequired(path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func LoadManifest(path string) (model.PayoutManifest, error) {
	var m model.PayoutManifest
	err := readRequired(path, &m)
	return m, err
}

func LoadPlan(path string) (model.PreparedPayout, error) {
	var p model.PreparedPayout
	err := readRequired(path, &p)
	return p, err
}

func readRequired(path string, v any) error {
	ok, err := ReadJSON(path, v)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("%s does not exist", path)
	}
	return nil
}
