package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/solquiz/service/temporal"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"
)

// schedulerFactory connects to the digest scheduler. Tests replace it.
var schedulerFactory = func(c *cli.Context) (temporal.Scheduler, func(), error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	tc, err := temporal.NewClient(
		c.String("temporal-host"),
		c.String("temporal-namespace"),
		c.String("temporal-task-queue"),
		logger,
	)
	if err != nil {
		return nil, nil, err
	}
	return tc, tc.Close, nil
}

func scheduleDigestCommand() *cli.Command {
	return &cli.Command{
		Name:      "schedule",
		Usage:     "Create or update a recurring digest for a chat",
		ArgsUsage: "ACCOUNT",
		Description: `Schedule a quiz or actions report for an account to be sent to a Telegram
chat at a fixed interval. Scheduling the same account and chat again updates
the existing schedule.

Example:
  solquiz digest schedule --chat 123456789 --every 24h --days 1 5Q544fKr...`,
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:     "chat",
				Usage:    "Telegram chat ID that receives the digest",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "every",
				Usage: "Interval between digests",
				Value: 24 * time.Hour,
			},
			&cli.IntFlag{
				Name:    "days",
				Aliases: []string{"d"},
				Usage:   "Trailing window in days",
				Value:   1,
			},
			&cli.StringFlag{
				Name:  "command",
				Usage: "Report to send: quiz or actions",
				Value: temporal.CommandQuiz,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of actions (actions only, 0 uses ACTIONS_LIMIT)",
			},
			&cli.BoolFlag{
				Name:  "skip-empty",
				Usage: "Do not send a message when the report has no rows",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("account address is required")
			}
			input := temporal.DigestInput{
				Account:   c.Args().First(),
				Days:      c.Int("days"),
				ChatID:    c.Int64("chat"),
				Command:   c.String("command"),
				Limit:     c.Int("limit"),
				SkipEmpty: c.Bool("skip-empty"),
			}
			every := c.Duration("every")
			if err := validateDigest(input, every); err != nil {
				return err
			}

			scheduler, closeFn, err := schedulerFactory(c)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := scheduler.UpsertDigestSchedule(context.Background(), input, every); err != nil {
				return fmt.Errorf("failed to schedule digest: %w", err)
			}

			fmt.Fprintf(c.App.Writer, "✓ Scheduled %s digest for %s to chat %d every %s\n",
				input.Command, input.Account, input.ChatID, every)
			return nil
		},
	}
}

func deleteDigestCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete the digest for an account and chat",
		Aliases:   []string{"rm"},
		ArgsUsage: "ACCOUNT",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:     "chat",
				Usage:    "Telegram chat ID of the digest",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("account address is required")
			}
			account := c.Args().First()

			scheduler, closeFn, err := schedulerFactory(c)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := scheduler.DeleteDigestSchedule(context.Background(), account, c.Int64("chat")); err != nil {
				return fmt.Errorf("failed to delete digest: %w", err)
			}

			fmt.Fprintf(c.App.Writer, "✓ Deleted digest for %s to chat %d\n", account, c.Int64("chat"))
			return nil
		},
	}
}

func listDigestsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "List digest schedules",
		Aliases: []string{"ls"},
		Action: func(c *cli.Context) error {
			scheduler, closeFn, err := schedulerFactory(c)
			if err != nil {
				return err
			}
			defer closeFn()

			schedules, err := scheduler.ListDigestSchedules(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list digests: %w", err)
			}

			if c.Bool("json") {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(schedules)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ACCOUNT\tCHAT\tEVERY\tPAUSED")
			for _, s := range schedules {
				fmt.Fprintf(w, "%s\t%d\t%s\t%v\n", s.Account, s.ChatID, s.Every, s.Paused)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d digests\n", len(schedules))
			return nil
		},
	}
}

func validateDigest(input temporal.DigestInput, every time.Duration) error {
	if _, err := solanago.PublicKeyFromBase58(input.Account); err != nil {
		return fmt.Errorf("invalid account address %q: %w", input.Account, err)
	}
	if input.Days < 1 {
		return fmt.Errorf("days must be at least 1")
	}
	if input.Command != temporal.CommandQuiz && input.Command != temporal.CommandActions {
		return fmt.Errorf("command must be %q or %q", temporal.CommandQuiz, temporal.CommandActions)
	}
	if input.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	if every < time.Minute {
		return fmt.Errorf("every must be at least 1m")
	}
	return nil
}
