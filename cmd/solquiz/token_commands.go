package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/brojonat/solquiz/service/tokens"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"
)

func tokenLookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "Resolve token metadata, fetching from chain when not cached",
		ArgsUsage: "MINT [MINT...]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("at least one mint address is required")
			}
			for _, mint := range c.Args().Slice() {
				if _, err := solanago.PublicKeyFromBase58(mint); err != nil {
					return fmt.Errorf("invalid mint address %q: %w", mint, err)
				}
			}

			ctx := context.Background()
			pipeline, err := localPipeline(ctx)
			if err != nil {
				return err
			}
			defer pipeline.Close(ctx)

			resolved := make([]tokens.Token, 0, c.NArg())
			for _, mint := range c.Args().Slice() {
				resolved = append(resolved, pipeline.Resolver.Resolve(ctx, mint))
			}
			return printTokens(c.App.Writer, resolved, c.Bool("json"))
		},
	}
}

func tokenListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "List every cached token",
		Aliases: []string{"ls"},
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			pipeline, err := localPipeline(ctx)
			if err != nil {
				return err
			}
			defer pipeline.Close(ctx)

			cached := pipeline.Resolver.Tokens()
			if err := printTokens(c.App.Writer, cached, c.Bool("json")); err != nil {
				return err
			}
			if !c.Bool("json") {
				fmt.Fprintf(os.Stderr, "\nTotal: %d tokens\n", len(cached))
			}
			return nil
		},
	}
}

func printTokens(w io.Writer, list []tokens.Token, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tSYMBOL\tNAME\tDECIMALS")
	for _, t := range list {
		symbol := t.Symbol
		if t.IsPlaceholder() {
			symbol = "?"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", t.Address, symbol, t.Name, t.Decimals)
	}
	return tw.Flush()
}
