package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/brojonat/solquiz/service/app"
	"github.com/brojonat/solquiz/service/config"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func quizCommand() *cli.Command {
	return &cli.Command{
		Name:      "quiz",
		Usage:     "Show per-token P&L for an account",
		ArgsUsage: "ACCOUNT",
		Description: `Fetch the account's transfers over the trailing window, classify them and
print the per-token profit and loss.

Examples:
  solquiz quiz --days 7 5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1
  solquiz quiz --jq '.positions[] | select(.native_delta < 0)' 5Q544fKr...`,
		Flags: reportFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("account address is required")
			}
			if c.Int("days") < 1 {
				return fmt.Errorf("days must be at least 1")
			}
			filters, err := compileFilters(c.StringSlice("jq"))
			if err != nil {
				return err
			}

			ctx := context.Background()
			pipeline, err := localPipeline(ctx)
			if err != nil {
				return err
			}
			defer pipeline.Close(ctx)

			report, err := pipeline.Service.Quiz(ctx, c.Args().First(), c.Int("days"))
			if err != nil {
				return err
			}

			if c.Bool("json") || len(filters) > 0 {
				return writeFiltered(c.App.Writer, report, filters)
			}
			fmt.Fprintln(c.App.Writer, pipeline.Renderer.Quiz(report))
			return nil
		},
	}
}

func actionsCommand() *cli.Command {
	flags := append(reportFlags(), &cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"n"},
		Usage:   "Maximum number of actions (0 uses ACTIONS_LIMIT)",
	})
	return &cli.Command{
		Name:      "actions",
		Usage:     "Show the classified action log for an account",
		ArgsUsage: "ACCOUNT",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("account address is required")
			}
			if c.Int("days") < 1 {
				return fmt.Errorf("days must be at least 1")
			}
			if c.Int("limit") < 0 {
				return fmt.Errorf("limit must not be negative")
			}
			filters, err := compileFilters(c.StringSlice("jq"))
			if err != nil {
				return err
			}

			ctx := context.Background()
			pipeline, err := localPipeline(ctx)
			if err != nil {
				return err
			}
			defer pipeline.Close(ctx)

			report, err := pipeline.Service.Actions(ctx, c.Args().First(), c.Int("days"), c.Int("limit"))
			if err != nil {
				return err
			}

			if c.Bool("json") || len(filters) > 0 {
				return writeFiltered(c.App.Writer, report, filters)
			}
			fmt.Fprintln(c.App.Writer, pipeline.Renderer.Actions(report))
			return nil
		},
	}
}

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "days",
			Aliases: []string{"d"},
			Usage:   "Trailing window in days",
			Value:   7,
		},
		&cli.StringSliceFlag{
			Name:  "jq",
			Usage: "jq filter applied to the JSON report (can be repeated, applied in order)",
		},
	}
}

// localPipeline builds the reporting pipeline in-process from the environment.
// Logs go to stderr at error level so stdout stays clean.
func localPipeline(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	return app.New(ctx, cfg, nil, logger)
}

func compileFilters(filters []string) ([]*gojq.Code, error) {
	compiled := make([]*gojq.Code, 0, len(filters))
	for _, filter := range filters {
		query, err := gojq.Parse(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
		}
		code, err := gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
		}
		compiled = append(compiled, code)
	}
	return compiled, nil
}

// applyFilters runs v through each filter in turn. Every result of one filter
// becomes an input of the next.
func applyFilters(v any, filters []*gojq.Code) ([]any, error) {
	// gojq only understands plain JSON values.
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}

	values := []any{input}
	for _, code := range filters {
		var next []any
		for _, in := range values {
			iter := code.Run(in)
			for {
				out, ok := iter.Next()
				if !ok {
					break
				}
				if err, isErr := out.(error); isErr {
					return nil, fmt.Errorf("jq filter failed: %w", err)
				}
				next = append(next, out)
			}
		}
		values = next
	}
	return values, nil
}

func writeFiltered(w io.Writer, v any, filters []*gojq.Code) error {
	values, err := applyFilters(v, filters)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, out := range values {
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}
