package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/savings-plan/internal/cli"
	"github.com/Veraticus/savings-plan/internal/common"
	"github.com/Veraticus/savings-plan/internal/model"
	"github.com/Veraticus/savings-plan/internal/money"
	"github.com/Veraticus/savings-plan/internal/ofx"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import transactions from OFX or QFX files exported from your bank. Each transaction is
stored in the month of its posting date; transactions already stored are skipped.

Examples:
  # Import a single statement
  plan import-ofx ~/Downloads/checking_2024_08.qfx

  # Import every statement in a directory and record August's opening balance
  plan import-ofx ~/Downloads/*.qfx --opening 4000`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")
	cmd.Flags().String("opening", "", "opening balance of the earliest imported month")
	cmd.Flags().Bool("no-refresh", false, "do not store derived expense tiers after importing")
	cmd.Flags().Bool("no-patterns", false, "do not assign subcategories from description patterns")
	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noRefresh, _ := cmd.Flags().GetBool("no-refresh")
	noPatterns, _ := cmd.Flags().GetBool("no-patterns")
	openingFlag, _ := cmd.Flags().GetString("opening")

	var opening decimal.Decimal
	if openingFlag != "" {
		d, err := money.Parse(openingFlag)
		if err != nil {
			return common.NewUserError(fmt.Sprintf("--opening: %q is not an amount", openingFlag), err)
		}
		opening = d
	}

	files, err := expandFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return common.NewUserError("No files found to import", nil)
	}

	out := cmd.OutOrStdout()
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	handler := cli.NewInterruptHandler(out)
	ctx := handler.HandleInterrupts(parent, "Import", "Nothing was saved.")

	slog.Info("Importing OFX files", "file_count", len(files), "dry_run", dryRun)

	txns, err := parseFiles(ctx, files, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if handler.WasInterrupted() {
		return context.Canceled
	}
	if len(txns) == 0 {
		fmt.Fprintln(out, cli.FormatWarning("No transactions found"))
		return nil
	}

	if !noPatterns {
		detector, err := loadPatterns()
		if err != nil {
			return err
		}
		var assigned int
		txns, assigned = detector.Apply(txns)
		common.LogInfo("Assigned subcategories", common.Fields{"count": assigned, "patterns": detector.Count()})
	}

	if dryRun {
		printDryRun(cmd, txns)
		return nil
	}

	return withApp(cmd, func(_ context.Context, a *app) error {
		result, err := ofx.NewImporter(a.store).Import(ctx, txns)
		if err != nil {
			return fmt.Errorf("failed to import transactions: %w", err)
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d transactions (%d duplicates skipped)",
			result.Created, result.Duplicates)))

		if openingFlag != "" && len(result.Periods) > 0 {
			first := result.Periods[0]
			if err := a.engine.SetOpeningBalance(ctx, first, opening); err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Opening balance of %s set to %s", first.Label(), money.Format(opening))))
		}

		if noRefresh {
			return nil
		}
		for _, p := range result.Periods {
			mismatches, err := a.engine.RefreshTiers(ctx, p)
			if err != nil {
				return err
			}
			if len(mismatches) > 0 {
				common.LogDebug("Stored derived tiers", common.Fields{"period": p.String(), "count": len(mismatches)})
			}
		}
		return nil
	})
}

// expandFiles resolves glob patterns. Patterns that match nothing are kept when they name
// an existing file.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, common.NewUserError(fmt.Sprintf("Invalid pattern %s", pattern), err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err != nil {
				slog.Warn("No files found matching pattern", "pattern", pattern)
				continue
			}
			matches = []string{pattern}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// parseFiles parses every file, skipping the ones that cannot be read, and drops
// transactions that appear in more than one file.
func parseFiles(ctx context.Context, files []string, progressOut io.Writer) ([]model.Transaction, error) {
	parser := ofx.NewParser()
	bar := cli.NewProgressBar(progressOut, len(files), "Parsing statements")
	defer func() { _ = bar.Finish() }()

	var all []model.Transaction
	seen := make(map[string]bool)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		txns, err := parseFile(ctx, parser, path)
		_ = bar.Add(1)
		if err != nil {
			common.LogError(err, "Failed to parse OFX file", common.Fields{"file": filepath.Base(path)})
			continue
		}
		if len(txns) == 0 {
			slog.Warn("No transactions found in file", "file", filepath.Base(path))
			continue
		}

		added := 0
		for _, txn := range txns {
			if seen[txn.Hash] {
				continue
			}
			seen[txn.Hash] = true
			all = append(all, txn)
			added++
		}
		slog.Debug("Parsed file", "file", filepath.Base(path), "transactions", len(txns), "new", added)
	}
	return all, nil
}

func parseFile(ctx context.Context, parser *ofx.Parser, path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	txns, err := parser.ParseFile(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return txns, nil
}

func printDryRun(cmd *cobra.Command, txns []model.Transaction) {
	byPeriod := make(map[model.Period][]model.Transaction)
	for _, txn := range txns {
		p := model.PeriodOf(txn.Date)
		byPeriod[p] = append(byPeriod[p], txn)
	}
	periods := make([]model.Period, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatInfo("Dry run, nothing is saved"))
	for _, p := range periods {
		fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s (%d)", p.Label(), len(byPeriod[p]))))
		fmt.Fprintln(out, cli.RenderTransactions(byPeriod[p]))
	}
}
