package nats

import (
	"fmt"
	"time"

	"github.com/brojonat/solquiz/service/quiz"
	"github.com/google/uuid"
)

// SubjectPrefix is the subject namespace for report events. Each event is
// published to "solquiz.reports.{account}".
const SubjectPrefix = "solquiz.reports"

// Subject returns the subject report events for account are published to.
func Subject(account string) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, account)
}

// AllReportsSubject matches report events for every account.
const AllReportsSubject = SubjectPrefix + ".*"

// ReportEvent is published after a quiz or actions command completes.
type ReportEvent struct {
	// ID is unique per event so consumers can drop redeliveries.
	ID      string    `json:"id"`
	Command string    `json:"command"`
	Account string    `json:"account"`
	Days    int       `json:"days"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`

	// Only one of these is populated, depending on Command.
	Actions   []quiz.UserAction `json:"actions,omitempty"`
	Positions []quiz.Position   `json:"positions,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// FromQuizReport converts a quiz report into an event for publishing.
func FromQuizReport(r *quiz.QuizReport) *ReportEvent {
	return &ReportEvent{
		ID:          uuid.NewString(),
		Command:     "quiz",
		Account:     r.Account,
		Days:        r.Days,
		From:        r.From,
		To:          r.To,
		Positions:   r.Positions,
		GeneratedAt: time.Now().UTC(),
	}
}

// FromActionsReport converts an actions report into an event for publishing.
func FromActionsReport(r *quiz.ActionsReport) *ReportEvent {
	return &ReportEvent{
		ID:          uuid.NewString(),
		Command:     "actions",
		Account:     r.Account,
		Days:        r.Days,
		From:        r.From,
		To:          r.To,
		Actions:     r.Actions,
		GeneratedAt: time.Now().UTC(),
	}
}
