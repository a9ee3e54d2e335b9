package quiz

import (
	"fmt"
	"strings"
	"time"

	"github.com/brojonat/solquiz/service/tokens"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

// DateLayout is the layout of the date used as an action's link text.
const DateLayout = "01/02 15:04:05"

// UnparsedTime is shown instead of a date for actions without a timestamp.
const UnparsedTime = "unparsed time"

// Renderer formats actions and positions as Telegram MarkdownV2.
type Renderer struct {
	explorerURL string
	location    *time.Location
}

// NewRenderer creates a renderer linking to explorerURL (e.g.
// https://solana.fm) and printing dates in loc. A nil loc means UTC.
func NewRenderer(explorerURL string, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{
		explorerURL: strings.TrimRight(explorerURL, "/"),
		location:    loc,
	}
}

// Escape escapes text for MarkdownV2.
func Escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, text)
}

// FormatAmount scales a base-unit amount by its decimals and appends the
// symbol. Tokens without a resolved symbol are labelled with their short
// address.
func FormatAmount(amount int64, decimals uint8, symbol, address string) string {
	label := symbol
	if label == "" || label == tokens.UnknownSymbol {
		label = shortAddress(address)
	}
	return fmt.Sprintf("%s %s", decimal.New(amount, -int32(decimals)).String(), label)
}

func (t TokenAmount) String() string {
	return FormatAmount(t.Amount, t.Decimals, t.Symbol, t.Address)
}

// Content returns the plain, unescaped description of an action.
func Content(a UserAction) string {
	switch a.Kind {
	case KindNone:
		return noneContent()
	case KindSpend:
		return spendContent(*a.Spend)
	case KindReceive:
		return receiveContent(*a.Receive)
	case KindExchange:
		return exchangeContent(*a.Spend, *a.Receive)
	default:
		return unknownContent()
	}
}

func noneContent() string { return "None" }

func unknownContent() string { return "Unknown" }

func spendContent(t TokenAmount) string { return "Spend " + t.String() }

func receiveContent(t TokenAmount) string { return "Receive " + t.String() }

func exchangeContent(spend, receive TokenAmount) string {
	return fmt.Sprintf("Exchange %s with %s", spend, receive)
}

// Date returns the link text for an action.
func (r *Renderer) Date(meta Metadata) string {
	if !meta.HasTimestamp {
		return UnparsedTime
	}
	return time.Unix(meta.Timestamp, 0).In(r.location).Format(DateLayout)
}

// TxURL returns the explorer link for a transaction.
func (r *Renderer) TxURL(hash string) string {
	return r.explorerURL + "/tx/" + hash
}

// AddressURL returns the explorer link for an account or mint.
func (r *Renderer) AddressURL(addr string) string {
	return r.explorerURL + "/address/" + addr
}

// Action renders one action as "[date](tx-link): content".
func (r *Renderer) Action(a UserAction) string {
	return fmt.Sprintf("[%s](%s): %s",
		Escape(r.Date(a.Metadata)),
		escapeURL(r.TxURL(a.Metadata.TransactionHash)),
		Escape(Content(a)),
	)
}

// Position renders one quiz row as "[short](token-link): native vs other".
func (r *Renderer) Position(p Position) string {
	native := tokens.Native()
	return fmt.Sprintf("[%s](%s): %s vs %s",
		Escape(shortAddress(p.Address)),
		escapeURL(r.AddressURL(p.Address)),
		Escape(FormatAmount(p.NativeDelta, native.Decimals, native.Symbol, native.Address)),
		Escape(FormatAmount(p.TokenDelta, p.Decimals, p.Symbol, p.Address)),
	)
}

// Quiz renders a quiz report, one row per position.
func (r *Renderer) Quiz(report *QuizReport) string {
	if len(report.Positions) == 0 {
		return Escape(fmt.Sprintf("No trades for %s in the last %d days.", shortAddress(report.Account), report.Days))
	}
	lines := make([]string, len(report.Positions))
	for i, p := range report.Positions {
		lines[i] = r.Position(p)
	}
	return strings.Join(lines, "\n")
}

// Actions renders an actions report, newest first.
func (r *Renderer) Actions(report *ActionsReport) string {
	if len(report.Actions) == 0 {
		return Escape(fmt.Sprintf("No activity for %s in the last %d days.", shortAddress(report.Account), report.Days))
	}
	lines := make([]string, len(report.Actions))
	for i, a := range report.Actions {
		lines[i] = r.Action(a)
	}
	return strings.Join(lines, "\n")
}

// escapeURL escapes the characters MarkdownV2 requires escaped inside the
// (...) part of an inline link.
func escapeURL(u string) string {
	return strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(u)
}
