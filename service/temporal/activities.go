package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solquiz/service/metrics"
	"github.com/brojonat/solquiz/service/quiz"
)

// Digest commands.
const (
	CommandQuiz    = "quiz"
	CommandActions = "actions"
)

// DigestInput describes one scheduled digest: which report to build for which
// account, and which chat receives it.
type DigestInput struct {
	Account string `json:"account"`
	Days    int    `json:"days"`
	ChatID  int64  `json:"chat_id"`
	Command string `json:"command"`         // "quiz" (default) or "actions"
	Limit   int    `json:"limit,omitempty"` // actions only, zero means the configured cap
	// SkipEmpty suppresses the message when the report has no rows.
	SkipEmpty bool `json:"skip_empty,omitempty"`
}

// DigestResult contains the outcome of one digest run.
type DigestResult struct {
	Account string    `json:"account"`
	Command string    `json:"command"`
	Rows    int       `json:"rows"`
	Sent    bool      `json:"sent"`
	RunTime time.Time `json:"run_time"`
	Error   *string   `json:"error,omitempty"`
}

// BuildDigestResult is the rendered report.
type BuildDigestResult struct {
	Text string `json:"text"`
	Rows int    `json:"rows"`
}

// SendDigestInput contains parameters for the SendDigest activity.
type SendDigestInput struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// ReporterInterface builds the reports a digest renders.
type ReporterInterface interface {
	Quiz(ctx context.Context, account string, days int) (*quiz.QuizReport, error)
	Actions(ctx context.Context, account string, days, limit int) (*quiz.ActionsReport, error)
}

// ChatSender delivers MarkdownV2 text to a chat.
type ChatSender interface {
	SendMarkdown(ctx context.Context, chatID int64, text string) error
}

// Activities holds the dependencies needed by Temporal activities.
type Activities struct {
	reporter ReporterInterface
	renderer *quiz.Renderer
	sender   ChatSender
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If metrics is nil, no metrics will be recorded.
func NewActivities(reporter ReporterInterface, renderer *quiz.Renderer, sender ChatSender, m *metrics.Metrics, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		reporter: reporter,
		renderer: renderer,
		sender:   sender,
		metrics:  m,
		logger:   logger,
	}
}

// BuildDigest runs the reporting pipeline for the digest's account and
// renders the result.
func (a *Activities) BuildDigest(ctx context.Context, input DigestInput) (result *BuildDigestResult, err error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordDigestActivity("BuildDigest", err, time.Since(start).Seconds())
		}
	}()

	a.logger.DebugContext(ctx, "building digest",
		"account", input.Account,
		"command", input.Command,
		"days", input.Days,
	)

	switch input.Command {
	case CommandQuiz, "":
		report, err := a.reporter.Quiz(ctx, input.Account, input.Days)
		if err != nil {
			return nil, fmt.Errorf("failed to build quiz digest: %w", err)
		}
		result = &BuildDigestResult{Text: a.renderer.Quiz(report), Rows: len(report.Positions)}
	case CommandActions:
		report, err := a.reporter.Actions(ctx, input.Account, input.Days, input.Limit)
		if err != nil {
			return nil, fmt.Errorf("failed to build actions digest: %w", err)
		}
		result = &BuildDigestResult{Text: a.renderer.Actions(report), Rows: len(report.Actions)}
	default:
		return nil, fmt.Errorf("invalid digest command: %q (must be quiz or actions)", input.Command)
	}

	a.logger.InfoContext(ctx, "digest built",
		"account", input.Account,
		"command", input.Command,
		"rows", result.Rows,
	)
	return result, nil
}

// SendDigest delivers a rendered digest to its chat.
func (a *Activities) SendDigest(ctx context.Context, input SendDigestInput) (err error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordDigestActivity("SendDigest", err, time.Since(start).Seconds())
		}
	}()

	if err := a.sender.SendMarkdown(ctx, input.ChatID, input.Text); err != nil {
		a.logger.ErrorContext(ctx, "failed to send digest", "chat_id", input.ChatID, "error", err)
		return fmt.Errorf("failed to send digest: %w", err)
	}

	a.logger.InfoContext(ctx, "digest sent", "chat_id", input.ChatID, "bytes", len(input.Text))
	return nil
}
