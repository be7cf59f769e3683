package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sadopc/daytracker/internal/report"
	"github.com/sadopc/daytracker/internal/store"
	"github.com/sadopc/daytracker/internal/tracking"
	"github.com/sadopc/daytracker/internal/tui"
	"github.com/spf13/cobra"
)

var (
	reportWeek   bool
	reportDate   string
	reportShift  int
	reportValues bool
)

var reportCmd = &cobra.Command{
	Use:     "report",
	Aliases: []string{"cal"},
	Short:   "Show a colored calendar of your entries",
	Long: `Show one calendar per configuration for a month or a week.

Cells are colored along the low → high gradient from settings. Text
configurations show ✎ on days with an entry.

EXAMPLES:

  daytracker report                  # This month
  daytracker report --week           # This week
  daytracker report --shift -1       # Last month
  daytracker report -d 2024-02-10    # The month containing a date
  daytracker report --values         # Print values in the cells`,
	RunE: func(cmd *cobra.Command, args []string) error {
		option := report.Month
		if reportWeek {
			option = report.Week
		}
		anchor, err := parseDay(reportDate)
		if err != nil {
			return err
		}
		anchor = report.Shift(option, anchor, reportShift)

		settings, err := db.Settings()
		if err != nil {
			return err
		}
		r := report.RangeFor(option, anchor, settings.WeekStart)
		full, err := db.ListFull(r.Start, r.End)
		if err != nil {
			return fmt.Errorf("failed to load report: %w", err)
		}
		calendars := report.Aggregate(r, report.GroupItems(full), report.Options{
			ShowValues: settings.ShowRecordedValues || reportValues,
			WeekStart:  settings.WeekStart,
			Today:      today(),
		})

		color.New(color.Bold).Println(r.String())
		if len(calendars) == 0 {
			fmt.Println("Nothing recorded in this range.")
			return nil
		}

		averages := make(map[int64]report.Average)
		for _, a := range report.Averages(calendars) {
			averages[a.Configuration.ID] = a
		}
		faint := color.New(color.Faint)
		for _, c := range calendars {
			fmt.Println()
			title := c.Configuration.Name
			if a, ok := averages[c.Configuration.ID]; ok {
				title += faint.Sprintf("  avg %s over %d days", formatAverage(c.Configuration, a), a.Count)
			}
			fmt.Println(title)
			fmt.Println(tui.RenderCalendar(c, settings, store.Day(now()), false))
		}
		return nil
	},
}

// formatAverage turns a mean gradient position back into the
// configuration's own scale.
func formatAverage(c store.Configuration, a report.Average) string {
	opts, ok := c.TrackingType.(*tracking.Options)
	if !ok {
		return fmt.Sprintf("%.0f%%", a.Value*100)
	}
	if opts == tracking.YesNo {
		return fmt.Sprintf("%.0f%% yes", a.Value*100)
	}
	s := fmt.Sprintf("%.1f", a.Value*float64(opts.MaxValue()))
	return strings.TrimSuffix(s, ".0")
}

func init() {
	reportCmd.Flags().BoolVarP(&reportWeek, "week", "w", false, "show a week instead of a month")
	reportCmd.Flags().StringVarP(&reportDate, "date", "d", "", "any day inside the range")
	reportCmd.Flags().IntVarP(&reportShift, "shift", "s", 0, "move the range by N months or weeks")
	reportCmd.Flags().BoolVar(&reportValues, "values", false, "print recorded values in the cells")
	rootCmd.AddCommand(reportCmd)
}
