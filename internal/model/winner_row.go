package model

// WinnerRow is one raw input row. Nothing about it is validated yet.
type WinnerRow struct {
	Address  string         `json:"address"`
	Amount   Amount         `json:"amount"`
	Rank     int            `json:"rank"`
	ID       string         `json:"id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
