package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"payoutScope/internal/model"
)

// JsonlStorage appends execution results to a JSONL file. The file doubles as
// the hash journal read back by reconciliation.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutResults appends a batch of results as JSON lines.
func (s *JsonlStorage) PutResults(results []model.ExecutionResult) error {
	if len(results) == 0 {
		return nil
	}

	if err := ensureDir(s.path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open journal")
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, result := range results {
		line, err := json.Marshal(result)
		if err != nil {
			return errors.Wrap(err, "marshal result")
		}
		if _, err := writer.Write(line); err != nil {
			return errors.Wrap(err, "write result")
		}
		if err := writer.WriteByte('\n'); err != nil {
			return errors.Wrap(err, "write newline")
		}
	}

	if err := writer.Flush(); err != nil {
		return errors.Wrap(err, "flush journal")
	}
	return file.Sync()
}

// ReadResults reads every result in the journal, in file order. A missing
// journal reads as empty.
func ReadResults(path string) ([]model.ExecutionResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.ExecutionResult{}, nil
		}
		return nil, errors.Wrap(err, "open journal")
	}
	defer file.Close()

	results := make([]model.ExecutionResult, 0)
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var result model.ExecutionResult
		if err := json.Unmarshal([]byte(text), &result); err != nil {
			return nil, errors.Wrapf(err, "parse journal line %d", line)
		}
		results = append(results, result)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read journal")
	}
	return results, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}
	return nil
}
