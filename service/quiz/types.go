package quiz

import (
	"fmt"

	"github.com/brojonat/solquiz/service/tokens"
)

// TokenAmount is an amount of one token in base units. Amounts held by a
// UserAction are never negative; the side of the action carries the sign.
type TokenAmount struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals uint8  `json:"decimals"`
	Amount   int64  `json:"amount"`
}

// IsNative reports whether the amount is denominated in the native token.
func (t TokenAmount) IsNative() bool {
	return t.Address == tokens.NativeMint
}

// ShortAddress returns the first six characters of the address.
func (t TokenAmount) ShortAddress() string {
	return shortAddress(t.Address)
}

func shortAddress(addr string) string {
	if len(addr) > 6 {
		return addr[:6]
	}
	return addr
}

// Metadata identifies the transaction an action came from. HasTimestamp is
// false when no instruction in the transaction carried a token, in which case
// Timestamp is meaningless.
type Metadata struct {
	Timestamp       int64  `json:"timestamp"`
	HasTimestamp    bool   `json:"has_timestamp"`
	TransactionHash string `json:"transaction_hash"`
}

// ActionKind is the shape of a transaction's net balance change.
type ActionKind int

const (
	// KindNone: no net change for the subject.
	KindNone ActionKind = iota
	// KindSpend: exactly one token left the subject and nothing came in.
	KindSpend
	// KindReceive: exactly one token came in and nothing left.
	KindReceive
	// KindExchange: exactly one token left and exactly one came in.
	KindExchange
	// KindUnknown: any other combination.
	KindUnknown
)

var kindNames = map[ActionKind]string{
	KindNone:     "None",
	KindSpend:    "Spend",
	KindReceive:  "Receive",
	KindExchange: "Exchange",
	KindUnknown:  "Unknown",
}

func (k ActionKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k ActionKind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("invalid action kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *ActionKind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("invalid action kind %q", string(text))
}

// UserAction is the classification of one transaction. Spend is set for
// KindSpend and KindExchange, Receive for KindReceive and KindExchange.
//
// InvolvedAMM is reserved for liquidity-pool attribution of exchanges and is
// currently never populated.
type UserAction struct {
	Metadata    Metadata     `json:"metadata"`
	Kind        ActionKind   `json:"kind"`
	Spend       *TokenAmount `json:"spend,omitempty"`
	Receive     *TokenAmount `json:"receive,omitempty"`
	InvolvedAMM []string     `json:"involved_amm,omitempty"`
}

// NoneAction builds a KindNone action.
func NoneAction(meta Metadata) UserAction {
	return UserAction{Metadata: meta, Kind: KindNone}
}

// SpendAction builds a KindSpend action.
func SpendAction(meta Metadata, spend TokenAmount) UserAction {
	return UserAction{Metadata: meta, Kind: KindSpend, Spend: &spend}
}

// ReceiveAction builds a KindReceive action.
func ReceiveAction(meta Metadata, receive TokenAmount) UserAction {
	return UserAction{Metadata: meta, Kind: KindReceive, Receive: &receive}
}

// ExchangeAction builds a KindExchange action.
func ExchangeAction(meta Metadata, spend, receive TokenAmount) UserAction {
	return UserAction{Metadata: meta, Kind: KindExchange, Spend: &spend, Receive: &receive}
}

// UnknownAction builds a KindUnknown action.
func UnknownAction(meta Metadata) UserAction {
	return UserAction{Metadata: meta, Kind: KindUnknown}
}
