package model

// ManifestVersion is the current manifest format version.
const ManifestVersion = "1.0"

// PayoutManifest is the canonical, hashed record of one payout round.
type PayoutManifest struct {
	ID          string             `json:"id"`
	Winners     []NormalizedWinner `json:"winners"`
	Token       TokenInfo          `json:"token"`
	TotalAmount string             `json:"totalAmount"`
	CreatedBy   string             `json:"createdBy"`
	CreatedAt   string             `json:"createdAt"`
	RoundID     string             `json:"roundId"`
	GroupID     string             `json:"groupId"`
	Version     string             `json:"version"`
	Hash        string             `json:"hash"`
	Totals      ManifestTotals     `json:"totals"`
	Options     *ExecutionOptions  `json:"options,omitempty"`
}

// ManifestTotals summarises the manifest.
type ManifestTotals struct {
	AmountWei  string `json:"amountWei"`
	Recipients int    `json:"recipients"`
}

// ExecutionOptions carries optional batching hints recorded with a manifest.
type ExecutionOptions struct {
	Airdrop        string `json:"airdrop,omitempty"`
	MaxPerBatch    int    `json:"maxPerBatch,omitempty"`
	SingleApproval bool   `json:"singleApproval,omitempty"`
}
