package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sadopc/daytracker/internal/store"
	"github.com/sadopc/daytracker/internal/tracking"
	"github.com/spf13/cobra"
)

var (
	todayDate     string
	recordDate    string
	recordComment string
	recordClear   bool
)

var todayCmd = &cobra.Command{
	Use:     "today",
	Aliases: []string{"day", "t"},
	Short:   "Show the entries for a day",
	Long: `Show every entry for a day, creating empty ones for active configurations.

EXAMPLES:

  daytracker today                  # Today
  daytracker today --date yesterday # Yesterday
  daytracker today -d 2024-03-14    # A specific day`,
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDay(todayDate)
		if err != nil {
			return err
		}
		items, err := entries.Day(date)
		if err != nil {
			return fmt.Errorf("failed to load day: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("Nothing tracked yet. Add a configuration with 'daytracker configs add'.")
			return nil
		}

		bold := color.New(color.Bold)
		faint := color.New(color.Faint)
		bold.Println(date.Format("Monday, January 2 2006"))
		for _, it := range items {
			value := faint.Sprint("·")
			if it.Item.Value != nil {
				label, _ := tracking.Label(it.Configuration.TrackingType, *it.Item.Value)
				value = color.GreenString(label)
			}
			comment := ""
			if it.Item.Comment != nil && *it.Item.Comment != "" {
				comment = faint.Sprintf(" (%s)", truncate(*it.Item.Comment, 40))
			}
			fmt.Printf("  %s %s%s\n", padRight(truncate(it.Configuration.Name, 24), 24), value, comment)
		}

		missing, err := db.MissingCount(date)
		if err != nil {
			return err
		}
		if missing > 0 {
			color.Yellow("\n%d still missing", missing)
		}
		return nil
	},
}

var recordCmd = &cobra.Command{
	Use:     "record <id|name> [value]",
	Aliases: []string{"r", "log"},
	Short:   "Record an entry",
	Long: `Record the value of a configuration for a day.

Scales take 1-10, yes/no takes y or n (or 1/0). Text configurations take
the text itself as the value.

EXAMPLES:

  daytracker record Pain 4
  daytracker record Walked y -c "around the lake"
  daytracker record Journal "slept badly, headache by noon"
  daytracker record Pain 6 --date yesterday
  daytracker record Pain --clear     # Remove today's value`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDay(recordDate)
		if err != nil {
			return err
		}
		if date.After(today()) {
			return fmt.Errorf("cannot record entries for a future day")
		}
		c, err := resolveConfiguration(args[0])
		if err != nil {
			return err
		}

		var value *int
		var comment *string
		if cmd.Flags().Changed("comment") {
			comment = &recordComment
		}

		switch t := c.TrackingType.(type) {
		case *tracking.Options:
			if len(args) > 2 {
				return fmt.Errorf("%s takes a single value", c.Name)
			}
			if len(args) == 2 && !recordClear {
				v, err := parseValue(t, args[1])
				if err != nil {
					return err
				}
				value = &v
			} else if !recordClear && comment == nil {
				return fmt.Errorf("a value is required for %s", c.Name)
			}
		case tracking.TextEntry:
			if len(args) > 1 {
				text := strings.Join(args[1:], " ")
				comment = &text
			}
			if comment == nil && !recordClear {
				return fmt.Errorf("text is required for %s", c.Name)
			}
		default:
			panic(fmt.Sprintf("cli: unhandled tracking type %T", t))
		}

		var it store.Item
		if recordClear {
			it, err = entries.Clear(date, c.ID)
		} else {
			it, err = entries.Record(date, c.ID, value, comment)
		}
		if err != nil {
			return fmt.Errorf("failed to record: %w", err)
		}

		switch {
		case recordClear:
			color.Green("✓ Cleared %s on %s", c.Name, store.FormatDate(date))
		case it.Value != nil:
			label, _ := tracking.Label(c.TrackingType, *it.Value)
			color.Green("✓ %s: %s on %s", c.Name, label, store.FormatDate(date))
		default:
			color.Green("✓ Saved comment for %s on %s", c.Name, store.FormatDate(date))
		}
		return nil
	},
}

func init() {
	todayCmd.Flags().StringVarP(&todayDate, "date", "d", "", "day to show (YYYY-MM-DD, yesterday, -N)")
	recordCmd.Flags().StringVarP(&recordDate, "date", "d", "", "day to record (YYYY-MM-DD, yesterday, -N)")
	recordCmd.Flags().StringVarP(&recordComment, "comment", "c", "", "comment for the entry")
	recordCmd.Flags().BoolVar(&recordClear, "clear", false, "clear the recorded value")
	rootCmd.AddCommand(todayCmd, recordCmd)
}
