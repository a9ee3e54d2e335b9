package temporal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Scheduler manages Temporal schedules for digests. Each (chat, account)
// pair gets its own schedule that triggers DigestWorkflow.
type Scheduler interface {
	// UpsertDigestSchedule creates the schedule or updates its interval and
	// input if it already exists.
	UpsertDigestSchedule(ctx context.Context, input DigestInput, every time.Duration) error

	// DeleteDigestSchedule deletes the schedule for a chat and account.
	DeleteDigestSchedule(ctx context.Context, account string, chatID int64) error

	// ListDigestSchedules lists every digest schedule.
	ListDigestSchedules(ctx context.Context) ([]DigestSchedule, error)
}

// DigestSchedule summarizes one digest schedule.
type DigestSchedule struct {
	ID      string        `json:"id"`
	Account string        `json:"account"`
	ChatID  int64         `json:"chat_id"`
	Every   time.Duration `json:"every"`
	Paused  bool          `json:"paused"`
}

const scheduleIDPrefix = "digest-"

// scheduleID returns the Temporal schedule ID for a chat and account. Base58
// addresses never contain '-', so the account is everything after the last
// one even when the chat ID is negative.
func scheduleID(account string, chatID int64) string {
	return fmt.Sprintf("%s%d-%s", scheduleIDPrefix, chatID, account)
}

// parseScheduleID reverses scheduleID.
func parseScheduleID(id string) (account string, chatID int64, ok bool) {
	if !strings.HasPrefix(id, scheduleIDPrefix) {
		return "", 0, false
	}
	rest := strings.TrimPrefix(id, scheduleIDPrefix)
	i := strings.LastIndex(rest, "-")
	if i <= 0 || i == len(rest)-1 {
		return "", 0, false
	}
	chatID, err := strconv.ParseInt(rest[:i], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return rest[i+1:], chatID, true
}
