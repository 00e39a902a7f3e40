package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/gridprice/internal/database"
	"github.com/jgoulah/gridprice/internal/publisher"
	"github.com/jgoulah/gridprice/internal/repricer"
	"github.com/jgoulah/gridprice/pkg/models"
)

var (
	repriceService string
	repricePlans   []string
	repriceStart   string
	repriceEnd     string
	repriceTop     int
	repriceDetail  bool
	repricePublish bool
)

var repriceCmd = &cobra.Command{
	Use:   "reprice",
	Short: "Estimate what your usage would have cost under each plan",
	Long: `Aggregates stored daily usage into calendar months and prices every month under
each stored plan. Plans are listed cheapest first. Months a plan cannot price
(no applicable published rate) are left out of that plan's total.`,
	RunE: runReprice,
}

func init() {
	repriceCmd.Flags().StringVar(&repriceService, "service", "", "ESIID to reprice (default: the only stored ESIID)")
	repriceCmd.Flags().StringSliceVar(&repricePlans, "plan", nil, "Plan ID to include (repeatable, default: all stored plans)")
	repriceCmd.Flags().StringVar(&repriceStart, "start", "", "First usage day (YYYY-MM-DD or relative like 365d)")
	repriceCmd.Flags().StringVar(&repriceEnd, "end", "", "Last usage day (YYYY-MM-DD or relative like 0d)")
	repriceCmd.Flags().IntVar(&repriceTop, "top", 15, "Number of plans to show (0 = all)")
	repriceCmd.Flags().BoolVar(&repriceDetail, "detail", false, "Show the monthly breakdown for the cheapest plan")
	repriceCmd.Flags().BoolVar(&repricePublish, "publish", false, "Publish the cheapest plan to MQTT/Home Assistant")
	rootCmd.AddCommand(repriceCmd)
}

func runReprice(cmd *cobra.Command, args []string) error {
	now := time.Now()
	rng, err := parseRange(repriceStart, repriceEnd, now)
	if err != nil {
		return err
	}

	cfg, log, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	serviceID, err := resolveService(ctx, db, repriceService)
	if err != nil {
		return err
	}

	engine := repricer.NewEngine(db, log)
	results, err := engine.Reprice(ctx, repricer.Request{
		ServiceID: serviceID,
		PlanIDs:   repricePlans,
		Range:     rng,
	})
	if err != nil {
		return fmt.Errorf("repricing usage: %w", err)
	}

	if len(results) == 0 {
		fmt.Printf("No usage or plans to compare for %s\n", serviceID)
		return nil
	}

	printEstimates(serviceID, results, repriceTop)
	if repriceDetail {
		printMonthly(results[0])
	}

	if repricePublish {
		pub, err := publisher.New(cfg.MQTT, cfg.HomeAssistant, log)
		if err != nil {
			return fmt.Errorf("creating publisher: %w", err)
		}
		defer pub.Close()

		summary, _ := publisher.NewSummary(serviceID, results, now)
		if err := pub.Publish(ctx, summary); err != nil {
			return fmt.Errorf("publishing: %w", err)
		}
		fmt.Printf("✓ Published cheapest plan %s\n", summary.Plan)
	}
	return nil
}

// resolveService picks the requested ESIID, or the only stored one
func resolveService(ctx context.Context, db *database.DB, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}

	ids, err := db.DistinctServiceIDs(ctx)
	if err != nil {
		return "", fmt.Errorf("listing service points: %w", err)
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("no usage stored; run 'gridprice import' first")
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%d service points stored; choose one with --service (see 'gridprice services')", len(ids))
	}
}

func printEstimates(serviceID string, results []models.PlanCostEstimate, top int) {
	shown := results
	if top > 0 && len(shown) > top {
		shown = shown[:top]
	}

	fmt.Printf("\nEstimated cost for %s (%d plans compared):\n", serviceID, len(results))
	fmt.Println("--------------------------------------------------------------------------------------------")
	fmt.Printf("%-4s  %-44s  %10s  %10s  %8s  %6s\n", "#", "Plan", "Total", "Per month", "¢/kWh", "Months")
	fmt.Println("--------------------------------------------------------------------------------------------")
	for i, est := range shown {
		fmt.Printf("%-4d  %-44s  %10s  %10s  %8.2f  %6d\n",
			i+1,
			truncate(est.Plan.DisplayName(), 44),
			fmt.Sprintf("$%.2f", est.TotalCost),
			fmt.Sprintf("$%.2f", est.AvgMonthlyCost),
			est.AvgPricePerKWh,
			len(est.MonthlyCosts),
		)
	}
	if len(shown) < len(results) {
		fmt.Printf("... %d more (use --top 0 to show all)\n", len(results)-len(shown))
	}
}

func printMonthly(est models.PlanCostEstimate) {
	fmt.Printf("\nMonthly breakdown for %s:\n", est.Plan.DisplayName())
	fmt.Println("----------------------------------------")
	fmt.Printf("%-8s  %10s  %12s\n", "Month", "kWh", "Cost")
	fmt.Println("----------------------------------------")
	for _, m := range est.MonthlyCosts {
		fmt.Printf("%04d-%02d   %10.1f  %12s\n", m.Year, m.Month, m.KWh, fmt.Sprintf("$%.2f", m.EstimatedCost))
	}
	fmt.Println("----------------------------------------")
	fmt.Printf("Total: $%.2f\n", est.TotalCost)
}
