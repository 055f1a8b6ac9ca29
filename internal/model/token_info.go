package model

// TokenInfo describes the asset being paid out.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	ChainID  uint64 `json:"chainId"`
	IsNative bool   `json:"isNative,omitempty"`
}

// TokenRef is the short token reference stored on each winner.
type TokenRef struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	ChainID uint64 `json:"chainId"`
}

// Ref returns the short reference for t.
func (t TokenInfo) Ref() TokenRef {
	return TokenRef{Address: t.Address, Symbol: t.Symbol, ChainID: t.ChainID}
}
