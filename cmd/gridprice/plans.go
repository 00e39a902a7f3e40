package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jgoulah/gridprice/internal/catalog"
	"github.com/jgoulah/gridprice/internal/config"
)

var (
	plansZips []string
	plansCSV  bool
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Manage stored electricity plans",
}

var plansFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Sync plans from Power to Choose",
	Long: `Downloads current retail electricity plans from Power to Choose and stores them.
Plans already stored are updated in place. Zip codes default to catalog.zip_codes
in config; with none configured a single statewide search is made.`,
	RunE: runPlansFetch,
}

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored plans",
	RunE:  runPlansList,
}

var plansShowCmd = &cobra.Command{
	Use:   "show <plan-id>",
	Short: "Show every stored field of one plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlansShow,
}

func init() {
	plansFetchCmd.Flags().StringSliceVar(&plansZips, "zip", nil, "Zip code to search (repeatable)")
	plansFetchCmd.Flags().BoolVar(&plansCSV, "csv", false, "Download the full CSV export instead of searching the API")
	plansCmd.AddCommand(plansFetchCmd)
	plansCmd.AddCommand(plansListCmd)
	plansCmd.AddCommand(plansShowCmd)
	rootCmd.AddCommand(plansCmd)
}

func newCatalogClient(cfg config.CatalogConfig, log zerolog.Logger) *catalog.Client {
	return catalog.NewClient(catalog.Options{
		APIURL:   cfg.APIURL,
		CSVURL:   cfg.CSVURL,
		PageSize: cfg.GetPageSize(),
		Timeout:  cfg.GetTimeout(),
	}, log)
}

func runPlansFetch(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Plan sync started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, log, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	client := newCatalogClient(cfg.Catalog, log)
	ctx := cmd.Context()
	now := time.Now().UTC()

	var count int
	if plansCSV {
		fmt.Println("Downloading plan export...")
		raw, err := client.FetchCSV(ctx)
		if err != nil {
			return fmt.Errorf("fetching plan export: %w", err)
		}
		count, err = catalog.Save(ctx, db, raw, now)
		if err != nil {
			return err
		}
	} else {
		zips := plansZips
		if len(zips) == 0 {
			zips = cfg.Catalog.ZipCodes
		}
		if len(zips) == 0 {
			fmt.Println("Searching statewide...")
		} else {
			fmt.Printf("Searching %d zip code(s)...\n", len(zips))
		}
		count, err = catalog.Sync(ctx, client, db, zips, now)
		if err != nil {
			return fmt.Errorf("syncing plans: %w", err)
		}
	}

	fmt.Printf("✓ Saved %s plans\n", humanize.Comma(int64(count)))
	return nil
}

func runPlansList(cmd *cobra.Command, args []string) error {
	_, _, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	plans, err := db.ListPlans(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing plans: %w", err)
	}
	if len(plans) == 0 {
		fmt.Println("No plans stored. Run 'gridprice plans fetch' first.")
		return nil
	}

	fmt.Printf("%-10s  %-44s  %-8s  %5s  %7s  %7s  %7s  %s\n", "Plan ID", "Plan", "Type", "Term", "500", "1000", "2000", "Fetched")
	fmt.Println("------------------------------------------------------------------------------------------------------------")
	for _, plan := range plans {
		fmt.Printf("%-10s  %-44s  %-8s  %5s  %7s  %7s  %7s  %s\n",
			plan.PlanID,
			truncate(plan.DisplayName(), 44),
			plan.PlanKind,
			formatTerm(plan.ContractMonths),
			formatCents(plan.PriceKWh500),
			formatCents(plan.PriceKWh1000),
			formatCents(plan.PriceKWh2000),
			humanize.Time(plan.FetchedAt),
		)
	}
	fmt.Printf("\n%d plans\n", len(plans))
	return nil
}

func runPlansShow(cmd *cobra.Command, args []string) error {
	_, _, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	plan, err := db.GetPlan(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("loading plan: %w", err)
	}
	if plan == nil {
		return fmt.Errorf("plan %s is not stored (see 'gridprice plans list')", args[0])
	}

	fmt.Printf("%s\n", plan.DisplayName())
	fmt.Println("----------------------------------------")
	fmt.Printf("Plan ID:           %s\n", plan.PlanID)
	fmt.Printf("Type:              %s\n", plan.PlanKind)
	fmt.Printf("Term:              %s\n", formatTerm(plan.ContractMonths))
	fmt.Printf("Price @ 500 kWh:   %s\n", formatCents(plan.PriceKWh500))
	fmt.Printf("Price @ 1000 kWh:  %s\n", formatCents(plan.PriceKWh1000))
	fmt.Printf("Price @ 2000 kWh:  %s\n", formatCents(plan.PriceKWh2000))
	fmt.Printf("Base charge:       %s\n", formatDollars(plan.BaseCharge))
	fmt.Printf("Energy charge:     %s\n", formatDollars(plan.EnergyCharge))
	fmt.Printf("TDU delivery:      %s\n", formatDollars(plan.DeliveryCharge))
	fmt.Printf("TDU per kWh:       %s\n", formatDollars(plan.DeliveryPerKWh))
	fmt.Printf("Cancellation fee:  %s\n", formatDollars(plan.CancellationFee))
	if plan.RenewablePct != nil {
		fmt.Printf("Renewable:         %.0f%%\n", *plan.RenewablePct)
	} else {
		fmt.Printf("Renewable:         -\n")
	}
	fmt.Printf("Time of use:       %t\n", plan.TimeOfUse)
	fmt.Printf("Fetched:           %s\n", humanize.Time(plan.FetchedAt))
	return nil
}

func formatDollars(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.4g", *v)
}

func formatCents(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f¢", *v)
}

func formatTerm(months *int) string {
	if months == nil {
		return "-"
	}
	return fmt.Sprintf("%dmo", *months)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
