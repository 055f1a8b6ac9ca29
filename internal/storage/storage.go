package storage

import "payoutScope/internal/model"

// ResultSink receives execution results as transactions are submitted.
type ResultSink interface {
	PutResults(results []model.ExecutionResult) error
}
