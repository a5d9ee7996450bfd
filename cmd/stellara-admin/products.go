// ABOUTME: "products" subcommand: lists the live catalog from the terminal
// ABOUTME: Uses the same backend client and summary as the dashboard

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/stellara/stellara-admin/internal/backend"
	"github.com/stellara/stellara-admin/internal/catalog"
	"github.com/stellara/stellara-admin/internal/config"
)

func runProducts(ctx context.Context, args []string) error {
	category, err := parseCategoryFlag(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	setupLogger(config.LoggingConfig{Level: "warn", Format: cfg.Logging.Format})

	client := backend.NewClient(cfg.Backend.BaseURL, backend.Options{Timeout: cfg.Backend.Timeout})
	list, err := client.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("listing products: %s", backend.UserMessage(err, "backend unavailable"))
	}

	printProducts(os.Stdout, list, category, catalog.Summarize(list, cfg.Catalog.SummaryCategories))
	return nil
}

// parseCategoryFlag supports both "--category value" and "--category=value".
func parseCategoryFlag(args []string) (string, error) {
	var category string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--category" || arg == "-c":
			if i+1 >= len(args) {
				return "", fmt.Errorf("--category requires a value")
			}
			category = args[i+1]
			i++
		case strings.HasPrefix(arg, "--category="):
			category = strings.TrimPrefix(arg, "--category=")
		case strings.HasPrefix(arg, "-"):
			return "", fmt.Errorf("unknown flag: %s", arg)
		default:
			return "", fmt.Errorf("unexpected argument: %s", arg)
		}
	}
	return strings.TrimSpace(category), nil
}

// printProducts writes the product table, optionally filtered to one
// category, followed by the dashboard counts.
func printProducts(out io.Writer, list []backend.Product, category string, summary catalog.Summary) {
	cyan := color.New(color.FgCyan)

	fmt.Fprintln(out)
	cyan.Fprintln(out, "  Products")
	cyan.Fprintln(out, "  --------")

	shown := 0
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tNAME\tCATEGORY\tPRICE\tOLD PRICE")
	fmt.Fprintln(w, "  --\t----\t--------\t-----\t---------")
	for _, p := range list {
		if category != "" && !strings.EqualFold(strings.TrimSpace(p.Category), category) {
			continue
		}
		oldPrice := "-"
		if p.ShowOldPrice() {
			oldPrice = "₦" + p.OldPrice.Decimal.String()
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			truncate(p.ID, 12), truncate(p.Name, 32), catalog.Label(p.Category), "₦"+p.Price.String(), oldPrice)
		shown++
	}
	w.Flush()

	if shown == 0 {
		fmt.Fprintln(out, "  (no products)")
	}

	fmt.Fprintln(out)
	cyan.Fprintln(out, "  Summary")
	cyan.Fprintln(out, "  -------")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, t := range summary.Tiles {
		fmt.Fprintf(w, "  %s\t%d\n", t.Label, t.Count)
	}
	w.Flush()
	fmt.Fprintln(out)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
