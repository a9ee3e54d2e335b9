package quiz

import "sort"

// Position is the running total for one token over a quiz window. NativeDelta
// approximates the native currency spent (negative) or received (positive)
// trading the token; TokenDelta the net units of the token accumulated.
type Position struct {
	Address       string `json:"address"`
	Symbol        string `json:"symbol,omitempty"`
	Decimals      uint8  `json:"decimals"`
	NativeDelta   int64  `json:"native_delta"`
	TokenDelta    int64  `json:"token_delta"`
	LastTimestamp int64  `json:"last_timestamp"`
}

// Aggregator folds UserActions into per-token positions. Only exchanges
// against the native token and receipts of non-native tokens contribute;
// exchanges between two non-native tokens are not attributed.
type Aggregator struct {
	positions map[string]*Position
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{positions: make(map[string]*Position)}
}

// Add folds actions, which should be ordered oldest first.
func (a *Aggregator) Add(actions ...UserAction) {
	for _, action := range actions {
		a.add(action)
	}
}

func (a *Aggregator) add(action UserAction) {
	ts := action.Metadata.Timestamp

	switch action.Kind {
	case KindExchange:
		spend, receive := *action.Spend, *action.Receive
		switch {
		case spend.IsNative() && !receive.IsNative():
			p := a.position(receive)
			p.NativeDelta -= spend.Amount
			p.TokenDelta += receive.Amount
			p.touch(ts)
		case !spend.IsNative() && receive.IsNative():
			p := a.position(spend)
			p.NativeDelta += receive.Amount
			p.TokenDelta -= spend.Amount
			p.touch(ts)
		}
	case KindReceive:
		receive := *action.Receive
		if receive.IsNative() {
			return
		}
		p := a.position(receive)
		p.TokenDelta += receive.Amount
		p.touch(ts)
	}
}

func (a *Aggregator) position(t TokenAmount) *Position {
	p, ok := a.positions[t.Address]
	if !ok {
		p = &Position{Address: t.Address}
		a.positions[t.Address] = p
	}
	if t.Symbol != "" {
		p.Symbol = t.Symbol
		p.Decimals = t.Decimals
	}
	return p
}

func (p *Position) touch(ts int64) {
	if ts > p.LastTimestamp {
		p.LastTimestamp = ts
	}
}

// Positions returns a snapshot of every touched token, most recently active
// first. Ties are broken by address.
func (a *Aggregator) Positions() []Position {
	out := make([]Position, 0, len(a.positions))
	for _, p := range a.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastTimestamp != out[j].LastTimestamp {
			return out[i].LastTimestamp > out[j].LastTimestamp
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// Aggregate folds actions (oldest first) and returns the sorted positions.
func Aggregate(actions []UserAction) []Position {
	a := NewAggregator()
	a.Add(actions...)
	return a.Positions()
}
