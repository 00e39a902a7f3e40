package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/gridprice/internal/repricer"
)

var (
	listService string
	listStart   string
	listEnd     string
	listMonthly bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored usage data",
	Long:  `Displays stored daily electricity usage from the database.`,
	RunE:  runList,
}

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List ESIIDs with stored usage",
	RunE:  runServices,
}

func init() {
	listCmd.Flags().StringVar(&listService, "service", "", "Filter by ESIID (default: all)")
	listCmd.Flags().StringVar(&listStart, "start", "", "First day (YYYY-MM-DD or relative like 30d)")
	listCmd.Flags().StringVar(&listEnd, "end", "", "Last day (YYYY-MM-DD or relative like 0d)")
	listCmd.Flags().BoolVar(&listMonthly, "monthly", false, "Show calendar month totals instead of days")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(servicesCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	rng, err := parseRange(listStart, listEnd, time.Now())
	if err != nil {
		return err
	}

	_, _, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()

	// Determine which service points to query
	services := []string{}
	if listService != "" {
		services = append(services, listService)
	} else {
		services, err = db.DistinctServiceIDs(ctx)
		if err != nil {
			return fmt.Errorf("listing service points: %w", err)
		}
	}
	if len(services) == 0 {
		fmt.Println("No usage data stored")
		return nil
	}

	for _, service := range services {
		data, err := db.ListUsage(ctx, service, rng)
		if err != nil {
			return fmt.Errorf("listing data for %s: %w", service, err)
		}

		if len(data) == 0 {
			fmt.Printf("No data found for %s\n", service)
			continue
		}

		fmt.Printf("\n%s Usage Data:\n", service)
		fmt.Println("----------------------------------------")

		var total float64
		if listMonthly {
			fmt.Printf("%-12s  %10s  %5s\n", "Month", "kWh", "Days")
			fmt.Println("----------------------------------------")
			for _, m := range repricer.AggregateMonthly(data) {
				fmt.Printf("%04d-%02d       %10.1f  %5d\n", m.Year, m.Month, m.TotalKWh, m.Days)
			}
			for _, record := range data {
				total += record.KWh
			}
		} else {
			fmt.Printf("%-12s  %10s  %4s  %4s\n", "Date", "kWh", "Type", "A/E")
			fmt.Println("----------------------------------------")
			for _, record := range data {
				fmt.Printf("%-12s  %10.2f  %4s  %4s\n", record.Date.Format("2006-01-02"), record.KWh, record.ReadingType, record.ActualEstimated)
				total += record.KWh
			}
		}

		fmt.Println("----------------------------------------")
		fmt.Printf("Total: %.2f kWh (%d records)\n", total, len(data))
	}

	return nil
}

func runServices(cmd *cobra.Command, args []string) error {
	_, _, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	ids, err := db.DistinctServiceIDs(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing service points: %w", err)
	}
	if len(ids) == 0 {
		fmt.Println("No usage data stored")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
