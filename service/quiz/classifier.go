package quiz

import (
	"context"
	"io"
	"log/slog"

	"github.com/brojonat/solquiz/client"
	"github.com/brojonat/solquiz/service/metrics"
	"github.com/brojonat/solquiz/service/tokens"
)

// TokenResolver maps a token address to display metadata. Implementations
// must not fail; unknown tokens resolve to a placeholder.
type TokenResolver interface {
	Resolve(ctx context.Context, address string) tokens.Token
}

// Classifier turns explorer transactions into UserActions for a subject
// account.
type Classifier struct {
	resolver TokenResolver
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewClassifier creates a classifier. A nil resolver leaves symbols and
// decimals unset.
func NewClassifier(resolver TokenResolver, m *metrics.Metrics, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Classifier{
		resolver: resolver,
		logger:   logger,
		metrics:  m,
	}
}

// Summarize folds the instructions of tx into the subject's net balance
// changes. Instructions without a token are ignored entirely. Non-transfer
// instructions only contribute their timestamp. Transfers without a
// destination are skipped.
func (c *Classifier) Summarize(ctx context.Context, subject string, tx client.Transaction) *TransactionSummary {
	summary := NewTransactionSummary(tx.TransactionHash)

	for _, ins := range tx.Data {
		if ins.Token == "" {
			continue
		}

		if !summary.SetTimestamp(ins.Timestamp) {
			c.logger.WarnContext(ctx, "timestamp mismatch within transaction",
				"transaction", tx.TransactionHash,
				"expected", summary.Timestamp,
				"found", ins.Timestamp,
			)
			c.anomaly("timestamp_mismatch")
		}

		if !ins.Action.IsTransfer() {
			continue
		}

		if ins.Destination == nil {
			c.logger.DebugContext(ctx, "transfer without destination",
				"transaction", tx.TransactionHash,
				"source", ins.Source,
				"token", ins.Token,
			)
			c.anomaly("missing_destination")
			continue
		}
		destination := *ins.Destination

		switch {
		case ins.Source == subject:
			summary.Interact(destination)
			summary.BalanceChange(ins.Token, ins.Amount)
		case destination == subject:
			summary.Interact(ins.Source)
			summary.BalanceChange(ins.Token, -ins.Amount)
		}
	}

	return summary
}

// Action classifies a summary by the number of tokens on each side and
// resolves display metadata for the amounts it keeps.
func (c *Classifier) Action(ctx context.Context, summary *TransactionSummary) UserAction {
	spends := summary.Spends()
	receives := summary.Receives()
	meta := summary.Metadata()

	var action UserAction
	switch {
	case len(spends) == 0 && len(receives) == 0:
		action = NoneAction(meta)
	case len(spends) == 0 && len(receives) == 1:
		action = ReceiveAction(meta, c.resolve(ctx, receives[0]))
	case len(spends) == 1 && len(receives) == 0:
		action = SpendAction(meta, c.resolve(ctx, spends[0]))
	case len(spends) == 1 && len(receives) == 1:
		action = ExchangeAction(meta, c.resolve(ctx, spends[0]), c.resolve(ctx, receives[0]))
	default:
		action = UnknownAction(meta)
	}

	if c.metrics != nil {
		c.metrics.RecordActionClassified(action.Kind.String())
	}
	return action
}

// Classify produces exactly one UserAction for tx.
func (c *Classifier) Classify(ctx context.Context, subject string, tx client.Transaction) UserAction {
	return c.Action(ctx, c.Summarize(ctx, subject, tx))
}

// ClassifyAll classifies every transaction, preserving order.
func (c *Classifier) ClassifyAll(ctx context.Context, subject string, txs []client.Transaction) []UserAction {
	actions := make([]UserAction, 0, len(txs))
	for _, tx := range txs {
		actions = append(actions, c.Classify(ctx, subject, tx))
	}
	return actions
}

func (c *Classifier) resolve(ctx context.Context, amount TokenAmount) TokenAmount {
	if c.resolver == nil {
		return amount
	}
	t := c.resolver.Resolve(ctx, amount.Address)
	amount.Symbol = t.Symbol
	amount.Decimals = t.Decimals
	return amount
}

func (c *Classifier) anomaly(kind string) {
	if c.metrics != nil {
		c.metrics.RecordDataAnomaly(kind)
	}
}
