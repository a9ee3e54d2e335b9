package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.temporal.io/sdk/client"
)

// Client is a production implementation of Scheduler that talks to Temporal.
type Client struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

var _ Scheduler = (*Client)(nil)

// NewClient creates a new Temporal client.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return &Client{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger,
	}, nil
}

func (c *Client) workflowAction(input DigestInput) *client.ScheduleWorkflowAction {
	return &client.ScheduleWorkflowAction{
		ID:        scheduleID(input.Account, input.ChatID),
		Workflow:  "DigestWorkflow",
		TaskQueue: c.taskQueue,
		Args:      []interface{}{input},
	}
}

// CreateDigestSchedule creates a new Temporal schedule that runs
// DigestWorkflow every interval.
func (c *Client) CreateDigestSchedule(ctx context.Context, input DigestInput, every time.Duration) error {
	id := scheduleID(input.Account, input.ChatID)

	_, err := c.client.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: id,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{
				{Every: every},
			},
		},
		Action: c.workflowAction(input),
		Memo: map[string]interface{}{
			"account":    input.Account,
			"chat_id":    input.ChatID,
			"command":    input.Command,
			"days":       input.Days,
			"created_by": "solquiz",
		},
	})
	if err != nil {
		c.logger.Error("failed to create schedule",
			"account", input.Account,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to create schedule %q: %w", id, err)
	}

	c.logger.Info("digest schedule created",
		"account", input.Account,
		"chat_id", input.ChatID,
		"schedule_id", id,
		"every", every,
	)
	return nil
}

// UpsertDigestSchedule creates or updates a digest schedule. If the schedule
// already exists its interval and workflow input are replaced.
func (c *Client) UpsertDigestSchedule(ctx context.Context, input DigestInput, every time.Duration) error {
	id := scheduleID(input.Account, input.ChatID)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if _, err := handle.Describe(ctx); err != nil {
		c.logger.Debug("schedule not found, creating new one",
			"schedule_id", id,
			"error", err,
		)
		return c.CreateDigestSchedule(ctx, input, every)
	}

	err := handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(in client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			in.Description.Schedule.Spec.Intervals = []client.ScheduleIntervalSpec{
				{Every: every},
			}
			in.Description.Schedule.Action = c.workflowAction(input)
			return &client.ScheduleUpdate{
				Schedule: &in.Description.Schedule,
			}, nil
		},
	})
	if err != nil {
		c.logger.Error("failed to update schedule",
			"account", input.Account,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to update schedule %q: %w", id, err)
	}

	c.logger.Info("digest schedule updated",
		"account", input.Account,
		"chat_id", input.ChatID,
		"schedule_id", id,
		"every", every,
	)
	return nil
}

// DeleteDigestSchedule deletes the digest schedule for a chat and account.
func (c *Client) DeleteDigestSchedule(ctx context.Context, account string, chatID int64) error {
	id := scheduleID(account, chatID)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if err := handle.Delete(ctx); err != nil {
		c.logger.Error("failed to delete schedule",
			"account", account,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to delete schedule %q: %w", id, err)
	}

	c.logger.Info("digest schedule deleted", "account", account, "chat_id", chatID, "schedule_id", id)
	return nil
}

// ListDigestSchedules lists every schedule created by this service.
func (c *Client) ListDigestSchedules(ctx context.Context) ([]DigestSchedule, error) {
	iter, err := c.client.ScheduleClient().List(ctx, client.ScheduleListOptions{
		PageSize: 100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	var out []DigestSchedule
	for iter.HasNext() {
		entry, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate schedules: %w", err)
		}
		account, chatID, ok := parseScheduleID(entry.ID)
		if !ok {
			continue
		}
		s := DigestSchedule{
			ID:      entry.ID,
			Account: account,
			ChatID:  chatID,
			Paused:  entry.Paused,
		}
		if entry.Spec != nil && len(entry.Spec.Intervals) > 0 {
			s.Every = entry.Spec.Intervals[0].Every
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SDKClient returns the underlying Temporal SDK client for direct workflow operations.
func (c *Client) SDKClient() client.Client {
	return c.client
}

// TaskQueue returns the configured task queue for this client.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
