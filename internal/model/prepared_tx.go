package model

// TxKind identifies what a prepared transaction does.
type TxKind string

const (
	TxKindTransfer TxKind = "transfer"
	TxKindApprove  TxKind = "approve"
	TxKindBatch    TxKind = "batch"
)

// PreparedTx is a fully formed, unsigned transfer instruction.
// Value, Amount and gas prices are integer strings in wei / smallest unit.
type PreparedTx struct {
	Index                int      `json:"index"`
	Kind                 TxKind   `json:"kind"`
	To                   string   `json:"to"`
	Value                string   `json:"value"`
	Data                 string   `json:"data"`
	Amount               string   `json:"amount"`
	Recipients           []string `json:"recipients,omitempty"`
	GasLimit             uint64   `json:"gasLimit"`
	GasPrice             string   `json:"gasPrice,omitempty"`
	MaxFeePerGas         string   `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string   `json:"maxPriorityFeePerGas,omitempty"`
	Nonce                *uint64  `json:"nonce,omitempty"`
	ChainID              uint64   `json:"chainId"`
}

// PreparedPayout is the ordered transaction plan for one manifest.
type PreparedPayout struct {
	ManifestID string       `json:"manifestId"`
	Txs        []PreparedTx `json:"txs"`
	Validation Validation   `json:"validation"`
}

// Validation is the outcome of checking a prepared plan.
type Validation struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
