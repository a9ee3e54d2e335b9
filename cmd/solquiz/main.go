package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "solquiz",
		Usage: "Solana account trading report CLI",
		Description: `A command-line tool for the solquiz reporting pipeline.

Use this CLI to build quiz and actions reports locally, inspect the token
cache, manage scheduled digests, and tail published reports.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			quizCommand(),
			actionsCommand(),
			{
				Name:  "tokens",
				Usage: "Token metadata cache commands",
				Subcommands: []*cli.Command{
					tokenLookupCommand(),
					tokenListCommand(),
				},
			},
			{
				Name:  "digest",
				Usage: "Scheduled digest commands (Temporal)",
				Subcommands: []*cli.Command{
					scheduleDigestCommand(),
					deleteDigestCommand(),
					listDigestsCommand(),
				},
			},
			{
				Name:  "nats",
				Usage: "Report event streaming commands",
				Subcommands: []*cli.Command{
					subscribeCommand(),
				},
			},
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "temporal-host",
				Usage:   "Temporal server address",
				EnvVars: []string{"TEMPORAL_HOST"},
				Value:   "localhost:7233",
			},
			&cli.StringFlag{
				Name:    "temporal-namespace",
				Usage:   "Temporal namespace",
				EnvVars: []string{"TEMPORAL_NAMESPACE"},
				Value:   "default",
			},
			&cli.StringFlag{
				Name:    "temporal-task-queue",
				Usage:   "Temporal task queue for digest workflows",
				EnvVars: []string{"TEMPORAL_TASK_QUEUE"},
				Value:   "solquiz-digests",
			},
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Server URL for health checks",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}
}
