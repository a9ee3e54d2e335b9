package quiz

import "sort"

// TransactionSummary accumulates the subject's net balance changes over the
// instructions of one transaction. Positive balances are outflows from the
// subject, negative ones inflows. Tokens that net to zero are not present.
type TransactionSummary struct {
	Hash         string
	Timestamp    int64
	HasTimestamp bool
	Balances     map[string]int64
	InteractWith []string
}

// NewTransactionSummary returns an empty summary for the transaction hash.
func NewTransactionSummary(hash string) *TransactionSummary {
	return &TransactionSummary{
		Hash:     hash,
		Balances: make(map[string]int64),
	}
}

// BalanceChange adds amount to the net balance of token. The empty token is
// never a balance key.
func (s *TransactionSummary) BalanceChange(token string, amount int64) {
	if token == "" {
		return
	}
	net := s.Balances[token] + amount
	if net == 0 {
		delete(s.Balances, token)
		return
	}
	s.Balances[token] = net
}

// SetTimestamp records ts if no timestamp is set yet. The first timestamp
// wins; it returns false when ts disagrees with the recorded one.
func (s *TransactionSummary) SetTimestamp(ts int64) bool {
	if !s.HasTimestamp {
		s.Timestamp = ts
		s.HasTimestamp = true
		return true
	}
	return s.Timestamp == ts
}

// Interact records a counterparty, in instruction order.
func (s *TransactionSummary) Interact(addr string) {
	s.InteractWith = append(s.InteractWith, addr)
}

// Metadata returns the action metadata for the summary.
func (s *TransactionSummary) Metadata() Metadata {
	return Metadata{
		Timestamp:       s.Timestamp,
		HasTimestamp:    s.HasTimestamp,
		TransactionHash: s.Hash,
	}
}

// Spends returns the tokens with net outflow, sorted by address.
func (s *TransactionSummary) Spends() []TokenAmount {
	var out []TokenAmount
	for addr, v := range s.Balances {
		if v > 0 {
			out = append(out, TokenAmount{Address: addr, Amount: v})
		}
	}
	sortAmounts(out)
	return out
}

// Receives returns the tokens with net inflow as positive magnitudes, sorted
// by address.
func (s *TransactionSummary) Receives() []TokenAmount {
	var out []TokenAmount
	for addr, v := range s.Balances {
		if v < 0 {
			out = append(out, TokenAmount{Address: addr, Amount: -v})
		}
	}
	sortAmounts(out)
	return out
}

func sortAmounts(amounts []TokenAmount) {
	sort.Slice(amounts, func(i, j int) bool { return amounts[i].Address < amounts[j].Address })
}
