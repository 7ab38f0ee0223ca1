package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/session"
	"bilancio/internal/storage"
	"bilancio/internal/timeseries"
)

var (
	listFilter    filterFlags
	summaryFilter filterFlags
	deleteFilter  filterFlags

	importDryRun bool

	addDate        string
	addKind        string
	addCategory    string
	addAmount      string
	addDescription string

	forecastGranularity string
	forecastCategory    string

	exportOutput string
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Append the valid rows of a CSV file to the ledger",
	Long: `Reads a CSV file with date, kind, category, amount and description
columns. Rows that fail validation are reported with their line number and
skipped; the others are appended to the ledger and persisted.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record one transaction",
	Args:  cobra.NoArgs,
	RunE:  runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions matching the filter",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show income, expense, balance and spending per category",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete one transaction by id, or every transaction matching the filter",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDelete,
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Predict next period's spending from the expense history",
	Long: `Aggregates expenses into week, month, quarter or year periods, fits a
linear trend and predicts the next period. The prediction is flagged when
the history is too short or flat to fit, and an alert is raised when it
exceeds the budget ratio times the mean period spending.`,
	Args: cobra.NoArgs,
	RunE: runForecast,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the ledger as CSV",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(importCmd, addCmd, listCmd, summaryCmd, deleteCmd, forecastCmd, exportCmd)

	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "validate and report without saving")

	addCmd.Flags().StringVarP(&addDate, "date", "d", "", "transaction date, YYYY-MM-DD (default today)")
	addCmd.Flags().StringVarP(&addKind, "kind", "k", string(core.Expense), "Income or Expense")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "category label")
	addCmd.Flags().StringVarP(&addAmount, "amount", "a", "", "positive amount, e.g. 12.50")
	addCmd.Flags().StringVarP(&addDescription, "description", "m", "", "free text note")
	_ = addCmd.MarkFlagRequired("category")
	_ = addCmd.MarkFlagRequired("amount")

	listFilter.register(listCmd)
	summaryFilter.register(summaryCmd)
	deleteFilter.register(deleteCmd)

	forecastCmd.Flags().StringVarP(&forecastGranularity, "granularity", "g", "", "week, month, quarter or year (default from config)")
	forecastCmd.Flags().StringVarP(&forecastCategory, "category", "c", "", "forecast a single category")

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	records, err := storage.ReadCSV(ctx, f)
	if err != nil {
		return err
	}
	staged := ledger.New()
	report := staged.Load(records)
	printLoadReport(cmd.OutOrStdout(), args[0], report)
	if importDryRun || report.Loaded == 0 {
		return nil
	}

	s, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	for _, tx := range staged.All() {
		tx.ID = ""
		if _, err := s.Add(ctx, tx); err != nil {
			return err
		}
	}
	if err := s.Persist(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions, ledger now holds %d\n", report.Loaded, len(s.All()))
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	date := addDate
	if strings.TrimSpace(date) == "" {
		date = core.DateOf(time.Now()).String()
	}
	tx, err := s.AddRecord(ctx, core.RawRecord{
		Date:        date,
		Kind:        addKind,
		Category:    addCategory,
		Amount:      addAmount,
		Description: addDescription,
	})
	if err != nil {
		return err
	}
	if err := s.Persist(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s %s %s\n", tx.Date, tx.Kind, tx.Category, tx.Amount)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	f, err := listFilter.filter()
	if err != nil {
		return err
	}
	s, cleanup, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	txs := s.Find(f)
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tKIND\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", tx.ID, tx.Date, tx.Kind, tx.Category, tx.Amount, tx.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d transactions\n", len(txs))
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	f, err := summaryFilter.filter()
	if err != nil {
		return err
	}
	s, cleanup, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	printOverview(cmd.OutOrStdout(), s.Overview(f))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	f, err := deleteFilter.filter()
	if err != nil {
		return err
	}
	if len(args) == 0 && f.IsEmpty() {
		return fmt.Errorf("refusing to delete every transaction: pass an id or a filter")
	}
	s, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	removed := 1
	if len(args) == 1 {
		if err := s.Delete(ctx, args[0]); err != nil {
			return err
		}
	} else {
		removed = s.DeleteWhere(ctx, f)
	}
	if removed > 0 {
		if err := s.Persist(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d transactions\n", removed)
	return nil
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	q := session.Query{Category: forecastCategory}
	if forecastGranularity != "" {
		g, err := timeseries.ParseGranularity(forecastGranularity)
		if err != nil {
			return fmt.Errorf("--granularity: %w", err)
		}
		q.Granularity = g
	}

	s, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	if q.Granularity == "" {
		q.Granularity = s.Granularity()
	}

	res, alert, err := s.Forecast(ctx, q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	scope := "all expenses"
	if forecastCategory != "" {
		scope = core.NormalizeCategory(forecastCategory)
	}
	fmt.Fprintf(out, "Forecast for %s (%s): %s\n", scope, q.Granularity, res.PredictedAmount)
	if res.NextPeriod != "" {
		fmt.Fprintf(out, "  period %s\n", res.NextPeriod)
	}
	fmt.Fprintf(out, "  based on %d periods, method %s", res.BasisPeriodCount, res.Method)
	if res.Degenerate {
		fmt.Fprint(out, ", not enough variation for a trend")
	} else {
		fmt.Fprintf(out, ", r² %.2f", res.RSquared)
	}
	fmt.Fprintln(out)
	if alert.Triggered {
		fmt.Fprintf(out, "  ALERT: above %s (%.2f x mean period spending %s)\n", alert.Threshold, alert.Ratio, alert.Reference)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if exportOutput == "" {
		return storage.WriteCSV(ctx, cmd.OutOrStdout(), s.All())
	}
	// Reuse the CSV store so the file is replaced atomically.
	return storage.NewCSVStore(exportOutput).Save(ctx, s.All())
}

func printLoadReport(w io.Writer, source string, report ledger.LoadReport) {
	fmt.Fprintf(w, "%s: %d valid, %d skipped\n", source, report.Loaded, report.Skipped)
	for _, e := range report.Errors {
		fmt.Fprintf(w, "  line %d: %s %q: %s\n", e.Line, e.Field, e.Value, e.Reason())
	}
}

func printOverview(w io.Writer, o core.Overview) {
	fmt.Fprintf(w, "Transactions: %d\n", o.Count)
	fmt.Fprintf(w, "Income:       %s\n", o.Income)
	fmt.Fprintf(w, "Expense:      %s\n", o.Expense)
	fmt.Fprintf(w, "Balance:      %s\n", o.Balance)
	if len(o.ByCategory) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSpending by category:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, c := range o.ByCategory {
		fmt.Fprintf(tw, "  %s\t%s\t%d\t\n", c.Name, c.Amount, c.Count)
	}
	tw.Flush()
}
