package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	natspkg "github.com/brojonat/solquiz/service/nats"
	"github.com/urfave/cli/v2"
)

// subscribeCommand tails report events published by the bot.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Stream report events as they are published",
		ArgsUsage: "[ACCOUNT]",
		Description: `Subscribe to report events published to NATS after every quiz or actions
command. Events for one account are published to solquiz.reports.{account};
without an account every report is streamed.

Example:
  solquiz --json nats subscribe 5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1`,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Stop after this long (0 streams until interrupted)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 1 {
				return fmt.Errorf("at most one account address may be given")
			}

			subject := natspkg.AllReportsSubject
			if c.NArg() == 1 {
				subject = natspkg.Subject(c.Args().First())
			}

			nc, err := natspkg.Connect(c.String("nats-url"), "solquiz-cli")
			if err != nil {
				return err
			}
			defer nc.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout := c.Duration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			jsonOutput := c.Bool("json")
			if !jsonOutput {
				fmt.Fprintf(c.App.Writer, "📡 Subscribing to: %s\n", subject)
				fmt.Fprintf(c.App.Writer, "   NATS: %s\n", c.String("nats-url"))
				fmt.Fprintf(c.App.Writer, "\nWaiting for reports... (Ctrl-C to exit)\n\n")
			}

			count := 0
			err = natspkg.Subscribe(ctx, nc, subject,
				func(event *natspkg.ReportEvent) {
					count++
					printEvent(c.App.Writer, event, count, jsonOutput)
				},
				func(err error) {
					fmt.Fprintf(os.Stderr, "Error parsing event: %v\n", err)
				},
			)
			if err != nil {
				return err
			}

			if !jsonOutput {
				fmt.Fprintf(c.App.Writer, "\nReceived %d report(s)\n", count)
			}
			return nil
		},
	}
}

func printEvent(w io.Writer, event *natspkg.ReportEvent, n int, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.Marshal(event)
		fmt.Fprintln(w, string(data))
		return
	}

	fmt.Fprintf(w, "✅ Report received (#%d)\n", n)
	fmt.Fprintf(w, "   Command:   %s\n", event.Command)
	fmt.Fprintf(w, "   Account:   %s\n", event.Account)
	fmt.Fprintf(w, "   Window:    %d days\n", event.Days)
	switch event.Command {
	case "quiz":
		fmt.Fprintf(w, "   Positions: %d\n", len(event.Positions))
	case "actions":
		fmt.Fprintf(w, "   Actions:   %d\n", len(event.Actions))
	}
	fmt.Fprintf(w, "   Generated: %s\n\n", event.GeneratedAt.Format(time.RFC3339))
}
