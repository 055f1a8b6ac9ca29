package model

// ReconcileStatus is the overall outcome of a reconciliation.
type ReconcileStatus string

const (
	ReconcileCompleted ReconcileStatus = "completed"
	ReconcilePartial   ReconcileStatus = "partial"
	ReconcileFailed    ReconcileStatus = "failed"
)

// RecipientStatus classifies what a recipient received on-chain.
type RecipientStatus string

const (
	RecipientConfirmed RecipientStatus = "confirmed"
	RecipientOverpaid  RecipientStatus = "overpaid"
	RecipientUnderpaid RecipientStatus = "underpaid"
	RecipientMissing   RecipientStatus = "missing"
)

// TxStatus classifies a looked-up transaction.
type TxStatus string

const (
	TxSuccess     TxStatus = "success"
	TxReverted    TxStatus = "reverted"
	TxMissing     TxStatus = "missing"
	TxUndecodable TxStatus = "undecodable"
)

// ReconciliationReport compares on-chain transfers with a manifest.
type ReconciliationReport struct {
	ManifestID          string            `json:"manifestId"`
	Token               string            `json:"token"`
	Success             bool              `json:"success"`
	Status              ReconcileStatus   `json:"status"`
	TotalAmountFound    string            `json:"totalAmountFound"`
	ExpectedTotalAmount string            `json:"expectedTotalAmount"`
	ConfirmedTransfers  int               `json:"confirmedTransfers"`
	FailedTransfers     int               `json:"failedTransfers"`
	Recipients          []RecipientDetail `json:"recipients"`
	Transactions        []TxDetail        `json:"transactions"`
	UnexpectedTransfers int               `json:"unexpectedTransfers"`
	UnexpectedAmount    string            `json:"unexpectedAmount"`
	ReconciledAt        string            `json:"reconciledAt"`
}

// RecipientDetail is the per-winner part of a report.
type RecipientDetail struct {
	Address   string          `json:"address"`
	Expected  string          `json:"expected"`
	Received  string          `json:"received"`
	Transfers int             `json:"transfers"`
	Status    RecipientStatus `json:"status"`
	Confirmed bool            `json:"confirmed"`
}

// TxDetail is the per-hash part of a report.
type TxDetail struct {
	Hash        string   `json:"hash"`
	Status      TxStatus `json:"status"`
	BlockNumber uint64   `json:"blockNumber,omitempty"`
	Transfers   int      `json:"transfers"`
	Error       string   `json:"error,omitempty"`
}
