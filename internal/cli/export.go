package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sadopc/daytracker/internal/export"
	"github.com/sadopc/daytracker/internal/store"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportFrom   string
	exportTo     string
	exportAll    bool
)

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export entries",
	Long: `Export entries with their configuration.

FORMATS:

  csv    One row per entry (spreadsheets)
  json   Full export with metadata
  yaml   Same as json, human-readable

Empty entries (no value and no comment) are skipped unless --all is given.

EXAMPLES:

  daytracker export csv                          # daytracker-export-<today>.csv
  daytracker export json -o backup.json
  daytracker export yaml --from 2024-01-01 --to 2024-03-31`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: export.Formats,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(args[0])

		to, err := parseDay(exportTo)
		if err != nil {
			return err
		}
		var from = to
		if exportFrom != "" {
			if from, err = parseDay(exportFrom); err != nil {
				return err
			}
		} else {
			earliest, ok, err := db.EarliestDate()
			if err != nil {
				return err
			}
			if ok {
				from = earliest
			}
		}

		full, err := db.ListFull(from, to)
		if err != nil {
			return fmt.Errorf("failed to load entries: %w", err)
		}
		items := full[:0]
		for _, it := range full {
			if exportAll || it.Item.Recorded() || (it.Item.Comment != nil && *it.Item.Comment != "") {
				items = append(items, it)
			}
		}

		path := exportOutput
		if path == "" {
			path = fmt.Sprintf("daytracker-export-%s.%s", store.FormatDate(today()), format)
		}
		if err := export.Write(format, items, path); err != nil {
			return err
		}
		color.Green("✓ Exported %d entries to %s", len(items), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "first day (default: earliest entry)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "last day (default: today)")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "include empty entries")
	rootCmd.AddCommand(exportCmd)
}
