package contracts

// Token identifies a fungible asset tracked by funding pots.
type Token string

// Native is the network's native currency.
const Native Token = "ETH"

// TokenInfo describes a colony's own token.
type TokenInfo struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Name     string `json:"name" yaml:"name"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
}
