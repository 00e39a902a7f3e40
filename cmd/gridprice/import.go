package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/gridprice/internal/ingest"
	"github.com/jgoulah/gridprice/internal/usagecsv"
)

var importKind string

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import Smart Meter Texas usage exports",
	Long: `Parses one or more usage CSV files exported from Smart Meter Texas and stores
the daily readings. Days already stored for a meter are skipped, so re-importing
a file is safe. Use --kind interval for 15-minute interval exports.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importKind, "kind", string(ingest.KindDaily), "Export type (daily or interval)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	kind, err := ingest.ParseKind(importKind)
	if err != nil {
		return err
	}

	_, log, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := ingest.NewService(db, log)

	var imported, skipped int
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}

		record, err := svc.Import(cmd.Context(), kind, filepath.Base(path), f)
		f.Close()
		if err != nil {
			if usagecsv.IsParseError(err) {
				fmt.Printf("✗ %s was not imported. Check that it is an %s usage export from Smart Meter Texas.\n", path, kind)
			}
			return err
		}

		fmt.Printf("✓ %s: imported %s records, skipped %s duplicates\n",
			path, humanize.Comma(int64(record.Imported)), humanize.Comma(int64(record.Skipped)))
		imported += record.Imported
		skipped += record.Skipped
	}

	if len(args) > 1 {
		fmt.Printf("\nTotal: %s imported, %s skipped\n", humanize.Comma(int64(imported)), humanize.Comma(int64(skipped)))
	}
	return nil
}
