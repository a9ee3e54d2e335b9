package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// DigestWorkflow builds a report for one account and sends it to a chat. It
// is triggered by a Temporal schedule.
//
// Activities are not retried: a failed explorer fetch or chat send fails the
// run, and the next scheduled run starts fresh.
func DigestWorkflow(ctx workflow.Context, input DigestInput) (*DigestResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("DigestWorkflow started", "account", input.Account, "chat_id", input.ChatID)

	command := input.Command
	if command == "" {
		command = CommandQuiz
	}
	result := &DigestResult{
		Account: input.Account,
		Command: command,
		RunTime: workflow.Now(ctx),
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var built *BuildDigestResult
	if err := workflow.ExecuteActivity(ctx, a.BuildDigest, input).Get(ctx, &built); err != nil {
		errMsg := fmt.Sprintf("failed to build digest: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to build digest: %w", err)
	}
	result.Rows = built.Rows

	if built.Rows == 0 && input.SkipEmpty {
		logger.Info("digest is empty, not sending", "account", input.Account)
		return result, nil
	}

	sendInput := SendDigestInput{ChatID: input.ChatID, Text: built.Text}
	if err := workflow.ExecuteActivity(ctx, a.SendDigest, sendInput).Get(ctx, nil); err != nil {
		errMsg := fmt.Sprintf("failed to send digest: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to send digest: %w", err)
	}
	result.Sent = true

	logger.Info("DigestWorkflow completed",
		"account", input.Account,
		"command", command,
		"rows", result.Rows,
	)
	return result, nil
}
