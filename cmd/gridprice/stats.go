package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/gridprice/internal/repricer"
	"github.com/jgoulah/gridprice/pkg/models"
)

var statsImports int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a summary of stored usage, plans and imports",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsImports, "imports", 5, "Number of recent imports to show")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	_, _, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	summary, err := db.Summary(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Usage Summary:")
	fmt.Println("----------------------------------------")
	fmt.Printf("Records:        %s\n", humanize.Comma(int64(summary.TotalRecords)))
	if summary.TotalRecords > 0 {
		fmt.Printf("Date range:     %s to %s\n", summary.FirstDate.Format("2006-01-02"), summary.LastDate.Format("2006-01-02"))
		fmt.Printf("Avg daily kWh:  %.1f\n", summary.AvgDailyKWh)
	}
	fmt.Printf("Plans stored:   %s\n", humanize.Comma(int64(summary.PlanCount)))

	if summary.TotalRecords > 0 {
		usage, err := db.ListAllUsage(ctx, models.DateRange{})
		if err != nil {
			return fmt.Errorf("listing usage: %w", err)
		}

		fmt.Println("\nMonthly kWh (all meters):")
		fmt.Println("----------------------------------------")
		for _, m := range repricer.MonthlyTotals(usage) {
			fmt.Printf("%s  %10.1f\n", m.Label, m.KWh)
		}
	}

	imports, err := db.ListImports(ctx, statsImports)
	if err != nil {
		return err
	}
	if len(imports) > 0 {
		fmt.Println("\nRecent imports:")
		fmt.Println("----------------------------------------")
		for _, rec := range imports {
			fmt.Printf("%-14s  %-8s  +%-6d  skipped %-6d  %s\n",
				humanize.Time(rec.CreatedAt), rec.Kind, rec.Imported, rec.Skipped, rec.Source)
		}
	}

	return nil
}
