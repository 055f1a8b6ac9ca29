package model

// NormalizedWinner is a validated recipient with an integer amount in the
// token's smallest unit.
type NormalizedWinner struct {
	Address  string         `json:"address"`
	Amount   string         `json:"amount"`
	Rank     int            `json:"rank"`
	ID       string         `json:"id,omitempty"`
	Token    TokenRef       `json:"token"`
	Metadata map[string]any `json:"metadata,omitempty"`
	// Sources holds the zero-based input row indexes merged into this winner.
	Sources []int `json:"sources"`
}
