package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ArgumentError is a user mistake in a command. Its message is shown as is.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

// QuizArgs are the arguments of /quiz.
type QuizArgs struct {
	Account string
	Days    int
}

// ActionsArgs are the arguments of /actions. A zero Count means the
// configured actions limit.
type ActionsArgs struct {
	Account string
	Days    int
	Count   int
}

// HelpText lists the supported commands.
func HelpText(maxDays int) string {
	return strings.Join([]string{
		"These commands are supported:",
		"/help - Display this text.",
		fmt.Sprintf("/quiz <account> <days> - Show an account's portfolio over the last 1-%d days.", maxDays),
		fmt.Sprintf("/actions <account> <days> [count] - Show an account's latest actions over the last 1-%d days.", maxDays),
	}, "\n")
}

// ParseQuizArgs parses "<account> <days>".
func ParseQuizArgs(args string, maxDays int) (QuizArgs, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return QuizArgs{}, &ArgumentError{Message: "Usage: /quiz <account> <days>"}
	}

	account, err := parseAccount(fields[0])
	if err != nil {
		return QuizArgs{}, err
	}
	days, err := parseDays(fields[1], maxDays)
	if err != nil {
		return QuizArgs{}, err
	}
	return QuizArgs{Account: account, Days: days}, nil
}

// ParseActionsArgs parses "<account> <days> [count]".
func ParseActionsArgs(args string, maxDays int) (ActionsArgs, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 || len(fields) > 3 {
		return ActionsArgs{}, &ArgumentError{Message: "Usage: /actions <account> <days> [count]"}
	}

	account, err := parseAccount(fields[0])
	if err != nil {
		return ActionsArgs{}, err
	}
	days, err := parseDays(fields[1], maxDays)
	if err != nil {
		return ActionsArgs{}, err
	}

	var count int
	if len(fields) == 3 {
		count, err = strconv.Atoi(fields[2])
		if err != nil || count < 1 {
			return ActionsArgs{}, &ArgumentError{Message: fmt.Sprintf("Invalid count %q: must be a positive number.", fields[2])}
		}
	}
	return ActionsArgs{Account: account, Days: days, Count: count}, nil
}

func parseAccount(s string) (string, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return "", &ArgumentError{Message: fmt.Sprintf("Invalid account %q: not a Solana address.", s)}
	}
	return pk.String(), nil
}

func parseDays(s string, maxDays int) (int, error) {
	days, err := strconv.Atoi(s)
	if err != nil || days < 1 || days > maxDays {
		return 0, &ArgumentError{Message: fmt.Sprintf("Invalid days %q: must be between 1 and %d.", s, maxDays)}
	}
	return days, nil
}
