package quiz

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/brojonat/solquiz/client"
	"github.com/brojonat/solquiz/service/metrics"
)

// TransferFetcher pages through an account's transfers, newest first.
type TransferFetcher interface {
	AccountTransfers(ctx context.Context, account string, from, to int64, limit int) ([]client.Transaction, error)
}

// CacheFlusher persists resolver state. Resolvers that implement it are
// flushed after every command.
type CacheFlusher interface {
	Flush(ctx context.Context) (int, error)
}

// FetchError wraps a failure to fetch transfers so surfaces can report it to
// the user instead of failing silently.
type FetchError struct {
	Account string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch transfers for %s: %v", e.Account, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options tune the reporting pipeline.
type Options struct {
	// FetchLimit caps how many transactions are fetched per command.
	FetchLimit int
	// ActionsLimit caps how many actions the actions log returns.
	ActionsLimit int
	// RequireSuccessful drops transactions with any instruction whose status
	// is not successful.
	RequireSuccessful bool
}

// DefaultOptions returns the defaults used when no configuration is given.
func DefaultOptions() Options {
	return Options{
		FetchLimit:   1000,
		ActionsLimit: 50,
	}
}

// QuizReport is the per-token P&L view over a trailing window.
type QuizReport struct {
	Account      string     `json:"account"`
	Days         int        `json:"days"`
	From         time.Time  `json:"from"`
	To           time.Time  `json:"to"`
	Transactions int        `json:"transactions"`
	Positions    []Position `json:"positions"`
}

// ActionsReport is the chronological action log, newest first.
type ActionsReport struct {
	Account string       `json:"account"`
	Days    int          `json:"days"`
	From    time.Time    `json:"from"`
	To      time.Time    `json:"to"`
	Actions []UserAction `json:"actions"`
}

// Service runs one command at a time through fetch, classify, aggregate.
type Service struct {
	fetcher    TransferFetcher
	classifier *Classifier
	flusher    CacheFlusher
	opts       Options
	now        func() time.Time
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewService creates a reporting service. If resolver also implements
// CacheFlusher, the token cache is flushed after each command.
func NewService(fetcher TransferFetcher, resolver TokenResolver, opts Options, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	defaults := DefaultOptions()
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = defaults.FetchLimit
	}
	if opts.ActionsLimit <= 0 {
		opts.ActionsLimit = defaults.ActionsLimit
	}
	s := &Service{
		fetcher:    fetcher,
		classifier: NewClassifier(resolver, m, logger),
		opts:       opts,
		now:        time.Now,
		logger:     logger,
		metrics:    m,
	}
	if f, ok := resolver.(CacheFlusher); ok {
		s.flusher = f
	}
	return s
}

// WithClock replaces the clock used to compute report windows.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Options returns the effective options.
func (s *Service) Options() Options {
	return s.opts
}

// AccountActions fetches up to limit transactions of account between from and
// to and classifies each one. The result is newest first.
func (s *Service) AccountActions(ctx context.Context, account string, from, to time.Time, limit int) ([]UserAction, error) {
	txs, err := s.fetcher.AccountTransfers(ctx, account, from.Unix(), to.Unix(), limit)
	if err != nil {
		return nil, &FetchError{Account: account, Err: err}
	}

	fetched := len(txs)
	if s.opts.RequireSuccessful {
		kept := make([]client.Transaction, 0, len(txs))
		for _, tx := range txs {
			if tx.Successful() {
				kept = append(kept, tx)
			}
		}
		txs = kept
	}

	s.logger.DebugContext(ctx, "fetched account transfers",
		"account", account,
		"fetched", fetched,
		"kept", len(txs),
	)

	return s.classifier.ClassifyAll(ctx, account, txs), nil
}

// Quiz aggregates the account's trades over the trailing days into per-token
// positions.
func (s *Service) Quiz(ctx context.Context, account string, days int) (*QuizReport, error) {
	defer s.flush(ctx)

	to := s.now().UTC()
	from := to.Add(-time.Duration(days) * 24 * time.Hour)

	actions, err := s.AccountActions(ctx, account, from, to, s.opts.FetchLimit)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordTransactionsFetched("quiz", len(actions))
	}

	return &QuizReport{
		Account:      account,
		Days:         days,
		From:         from,
		To:           to,
		Transactions: len(actions),
		Positions:    Aggregate(Chronological(actions)),
	}, nil
}

// Actions returns the newest actions of the account over the trailing days,
// at most limit of them and never more than the configured actions limit.
// A limit of zero means the configured limit.
func (s *Service) Actions(ctx context.Context, account string, days, limit int) (*ActionsReport, error) {
	defer s.flush(ctx)

	if limit <= 0 || limit > s.opts.ActionsLimit {
		limit = s.opts.ActionsLimit
	}

	to := s.now().UTC()
	from := to.Add(-time.Duration(days) * 24 * time.Hour)

	actions, err := s.AccountActions(ctx, account, from, to, s.opts.FetchLimit)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordTransactionsFetched("actions", len(actions))
	}
	if len(actions) > limit {
		actions = actions[:limit]
	}

	return &ActionsReport{
		Account: account,
		Days:    days,
		From:    from,
		To:      to,
		Actions: actions,
	}, nil
}

// Chronological returns a copy of newest-first actions ordered oldest first.
func Chronological(actions []UserAction) []UserAction {
	out := make([]UserAction, len(actions))
	for i, a := range actions {
		out[len(actions)-1-i] = a
	}
	return out
}

func (s *Service) flush(ctx context.Context) {
	if s.flusher == nil {
		return
	}
	if _, err := s.flusher.Flush(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to flush token cache", "error", err)
	}
}
