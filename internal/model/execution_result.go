package model

// ExecutionResult records the submission outcome of one prepared transaction.
// Index is only unique within ManifestID.
type ExecutionResult struct {
	ManifestID string `json:"manifestId"`
	Index      int    `json:"index"`
	Kind       TxKind `json:"kind"`
	Hash       string `json:"hash,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}
