package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"billing/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "GST and sales summaries",
}

var reportGSTCmd = &cobra.Command{
	Use:   "gst",
	Short: "Tax collected over a month, quarter or year",
	Example: `  billing report gst --year 2025 --month 4
  billing report gst --year 2025 --quarter 2 --json`,
	Args: cobra.NoArgs,
	RunE: runReportGST,
}

var reportSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Sales totals, margin and low-stock products",
	Args:  cobra.NoArgs,
	RunE:  runReportSummary,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportGSTCmd, reportSummaryCmd)

	reportGSTCmd.Flags().Int("year", time.Now().Year(), "Calendar year")
	reportGSTCmd.Flags().Int("month", 0, "Month 1-12")
	reportGSTCmd.Flags().Int("quarter", 0, "Quarter 1-4")
	reportGSTCmd.Flags().Bool("json", false, "Print JSON")
	reportSummaryCmd.Flags().Bool("json", false, "Print JSON")
}

func runReportGST(cmd *cobra.Command, args []string) error {
	var p report.Period
	p.Year, _ = cmd.Flags().GetInt("year")
	p.Month, _ = cmd.Flags().GetInt("month")
	p.Quarter, _ = cmd.Flags().GetInt("quarter")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		r, err := report.GST(a.orders.List(), p, time.Local)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(os.Stdout, r)
		}

		fmt.Printf("GST report %s: %d invoice(s)\n\n", p, len(r.Lines))
		for _, l := range r.Lines {
			fmt.Printf("%-16s %s  %-15s taxable %12s  tax %10s  total %12s\n",
				l.Serial, l.Date.Format("2006-01-02"), l.GSTIN,
				l.Taxable.StringFixed(2), l.TotalTax.StringFixed(2), l.Total.StringFixed(2))
		}
		fmt.Println()
		fmt.Printf("Taxable value  %14s\n", r.TaxableValue.StringFixed(2))
		fmt.Printf("CGST           %14s\n", r.CGST.StringFixed(2))
		fmt.Printf("SGST           %14s\n", r.SGST.StringFixed(2))
		fmt.Printf("IGST           %14s\n", r.IGST.StringFixed(2))
		fmt.Printf("Total tax      %14s\n", r.TotalTax.StringFixed(2))
		fmt.Printf("Total          %14s\n", r.TotalAmount.StringFixed(2))
		return nil
	})
}

func runReportSummary(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		s := report.Dashboard(a.store.Snapshot(), time.Now())
		if asJSON {
			return writeJSON(os.Stdout, s)
		}

		fmt.Printf("Total sales      %14s\n", s.TotalSales.StringFixed(2))
		fmt.Printf("Invoices         %14d\n", s.OrderCount)
		fmt.Printf("Average invoice  %14s\n", s.AvgOrderValue.StringFixed(2))
		fmt.Printf("Gross margin     %14s\n", s.GrossMargin.StringFixed(2))
		fmt.Println()
		fmt.Println("Last 7 days:")
		for _, d := range s.LastWeek {
			fmt.Printf("  %s %12s\n", d.Day, d.Total.StringFixed(2))
		}
		fmt.Println()
		fmt.Printf("Below %d in stock: %d product(s)\n", s.Threshold, len(s.LowStock))
		for _, p := range s.LowStock {
			fmt.Printf("  %-14s %-32s %6d\n", p.ProductID, p.Name, p.Stock)
		}
		return nil
	})
}
