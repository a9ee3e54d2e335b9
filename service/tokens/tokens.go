// Package tokens resolves token addresses to display metadata, cache first,
// falling back to an on-chain lookup.
package tokens

import (
	"context"
	"errors"
)

// NativeMint is the wrapped SOL mint the explorer reports for native transfers.
const NativeMint = "So11111111111111111111111111111111111111112"

// UnknownSymbol is the symbol given to tokens whose metadata could not be read.
const UnknownSymbol = "Unknown"

// ErrNotFound is returned by stores when a token is not cached.
var ErrNotFound = errors.New("token not found")

// Token is the cached display metadata for one mint.
type Token struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logo_uri"`
}

// IsPlaceholder reports whether the token carries no resolved metadata.
func (t Token) IsPlaceholder() bool {
	return t.Symbol == UnknownSymbol || t.Symbol == ""
}

// Store persists the token cache.
type Store interface {
	Load(ctx context.Context) ([]Token, error)
	Save(ctx context.Context, tokens []Token) error
}

// Placeholder returns the token used when nothing is known about address:
// the first six characters as name, UnknownSymbol, zero decimals.
func Placeholder(address string) Token {
	name := address
	if len(name) > 6 {
		name = name[:6]
	}
	return Token{
		Name:    name,
		Symbol:  UnknownSymbol,
		Address: address,
	}
}

// Native returns the metadata for the chain's native token.
func Native() Token {
	return Token{
		Name:     "Wrapped SOL",
		Symbol:   "SOL",
		Address:  NativeMint,
		Decimals: 9,
	}
}
