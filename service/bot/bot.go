package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/brojonat/solquiz/service/metrics"
	natspkg "github.com/brojonat/solquiz/service/nats"
	"github.com/brojonat/solquiz/service/quiz"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxMessageLength is the longest text Telegram accepts in one message.
const MaxMessageLength = 4096

// BotAPI is the subset of *tgbotapi.BotAPI the bot uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Reporter builds the reports behind the chat commands.
type Reporter interface {
	Quiz(ctx context.Context, account string, days int) (*quiz.QuizReport, error)
	Actions(ctx context.Context, account string, days, limit int) (*quiz.ActionsReport, error)
}

// Bot answers /help, /quiz and /actions commands.
type Bot struct {
	api       BotAPI
	reporter  Reporter
	renderer  *quiz.Renderer
	publisher natspkg.Publisher
	maxDays   int
	metrics   *metrics.Metrics
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// New creates a bot. The publisher and metrics are optional.
func New(api BotAPI, reporter Reporter, renderer *quiz.Renderer, publisher natspkg.Publisher, maxDays int, m *metrics.Metrics, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Bot{
		api:       api,
		reporter:  reporter,
		renderer:  renderer,
		publisher: publisher,
		maxDays:   maxDays,
		metrics:   m,
		logger:    logger,
	}
}

// Run long-polls for updates until ctx is cancelled. Each command is handled
// in its own goroutine; Run waits for in-flight commands before returning.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.InfoContext(ctx, "bot started, waiting for commands")

	defer b.wg.Wait()
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			b.logger.InfoContext(ctx, "bot stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			msg := update.Message
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleMessage(ctx, msg)
			}()
		}
	}
}

// HandleMessage runs one command message and sends the reply to its chat.
func (b *Bot) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	start := time.Now()
	command := msg.Command()
	chatID := msg.Chat.ID

	logger := b.logger.With("command", command, "chat_id", chatID)
	logger.InfoContext(ctx, "handling command", "args", msg.CommandArguments())

	r, err := b.dispatch(ctx, command, msg.CommandArguments())
	if b.metrics != nil {
		b.metrics.RecordCommand(command, "bot", err, time.Since(start).Seconds())
	}
	if err != nil {
		logger.ErrorContext(ctx, "command failed", "error", err)
		if sendErr := b.SendPlain(ctx, chatID, userMessage(err)); sendErr != nil {
			logger.ErrorContext(ctx, "failed to send error reply", "error", sendErr)
		}
		return
	}

	if r.markdown {
		err = b.SendMarkdown(ctx, chatID, r.text)
	} else {
		err = b.SendPlain(ctx, chatID, r.text)
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to send reply", "error", err)
		return
	}

	logger.InfoContext(ctx, "command completed", "duration", time.Since(start))
}

type reply struct {
	text     string
	markdown bool
}

func (b *Bot) dispatch(ctx context.Context, command, args string) (reply, error) {
	switch command {
	case "help", "start":
		return reply{text: HelpText(b.maxDays)}, nil
	case "quiz":
		return b.handleQuiz(ctx, args)
	case "actions":
		return b.handleActions(ctx, args)
	default:
		return reply{}, &ArgumentError{Message: fmt.Sprintf("Unknown command /%s. Use /help to see the supported commands.", command)}
	}
}

func (b *Bot) handleQuiz(ctx context.Context, args string) (reply, error) {
	p, err := ParseQuizArgs(args, b.maxDays)
	if err != nil {
		return reply{}, err
	}

	report, err := b.reporter.Quiz(ctx, p.Account, p.Days)
	if err != nil {
		return reply{}, err
	}
	b.publish(ctx, natspkg.FromQuizReport(report))

	return reply{text: b.renderer.Quiz(report), markdown: true}, nil
}

func (b *Bot) handleActions(ctx context.Context, args string) (reply, error) {
	p, err := ParseActionsArgs(args, b.maxDays)
	if err != nil {
		return reply{}, err
	}

	report, err := b.reporter.Actions(ctx, p.Account, p.Days, p.Count)
	if err != nil {
		return reply{}, err
	}
	b.publish(ctx, natspkg.FromActionsReport(report))

	return reply{text: b.renderer.Actions(report), markdown: true}, nil
}

func (b *Bot) publish(ctx context.Context, event *natspkg.ReportEvent) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.PublishReport(ctx, event); err != nil {
		b.logger.WarnContext(ctx, "failed to publish report event",
			"account", event.Account,
			"command", event.Command,
			"error", err,
		)
	}
}

// SendMarkdown sends MarkdownV2 text to chatID, split across as many
// messages as needed. Link previews are disabled.
func (b *Bot) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	return b.send(ctx, chatID, text, tgbotapi.ModeMarkdownV2)
}

// SendPlain sends unformatted text to chatID.
func (b *Bot) SendPlain(ctx context.Context, chatID int64, text string) error {
	return b.send(ctx, chatID, text, "")
}

func (b *Bot) send(ctx context.Context, chatID int64, text, parseMode string) error {
	for _, chunk := range SplitMessage(text, MaxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = parseMode
		msg.DisableWebPagePreview = true
		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}
	return nil
}

// SplitMessage breaks text into chunks of at most limit bytes, splitting
// between lines so MarkdownV2 entities stay intact. A single line longer than
// limit is sent as its own chunk.
func SplitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
	)
	for _, line := range strings.Split(text, "\n") {
		if current.Len() > 0 && current.Len()+1+len(line) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// userMessage turns a command error into the text shown in the chat.
func userMessage(err error) string {
	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		return argErr.Message
	}

	var fetchErr *quiz.FetchError
	if errors.As(err, &fetchErr) {
		return fmt.Sprintf("Could not fetch transfers for %s from the explorer. Please try again later.", fetchErr.Account)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "The request was cancelled before it finished. Please try again."
	}

	return "Something went wrong while building the report. Please try again later."
}
