package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/sadopc/daytracker/internal/store"
	"github.com/spf13/cobra"
)

// settingSetter applies one user-facing setting.
type settingSetter struct {
	help     string
	set      func(value string) error
	reminder bool
}

var settingSetters = map[string]settingSetter{
	"reminder": {
		help:     "on or off",
		reminder: true,
		set: func(v string) error {
			b, err := parseBool(v)
			if err != nil {
				return fmt.Errorf("reminder must be on or off")
			}
			return db.SetReminderEnabled(b)
		},
	},
	"reminder-time": {
		help:     "HH:MM, 24-hour",
		reminder: true,
		set: func(v string) error {
			t, err := store.ParseTimeOfDay(v)
			if err != nil {
				return err
			}
			return db.SetReminderTime(t)
		},
	},
	"show-values": {
		help: "on or off; print values in report cells",
		set: func(v string) error {
			b, err := parseBool(v)
			if err != nil {
				return fmt.Errorf("show-values must be on or off")
			}
			return db.SetShowRecordedValues(b)
		},
	},
	"low-color": {
		help: "#RRGGBB color for the lowest value",
		set: func(v string) error {
			c, err := store.ParseColor(v)
			if err != nil {
				return err
			}
			return db.SetLowValueColor(c)
		},
	},
	"high-color": {
		help: "#RRGGBB color for the highest value",
		set: func(v string) error {
			c, err := store.ParseColor(v)
			if err != nil {
				return err
			}
			return db.SetHighValueColor(c)
		},
	},
	"week-start": {
		help: "first column of report grids, e.g. monday",
		set: func(v string) error {
			d, err := store.ParseWeekday(v)
			if err != nil {
				return err
			}
			return db.SetWeekStart(d)
		},
	},
}

func settingKeys() []string {
	keys := make([]string, 0, len(settingSetters))
	for k := range settingSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change preferences",
	Long: `Show or change reminder and display preferences.

Changing a reminder setting re-registers the daily reminder immediately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsShowCmd.RunE(cmd, args)
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := db.Settings()
		if err != nil {
			return err
		}
		onOff := func(b bool) string {
			if b {
				return color.GreenString("on")
			}
			return color.New(color.Faint).Sprint("off")
		}
		fmt.Printf("%s %s\n", padRight("reminder", 14), onOff(s.ReminderEnabled))
		fmt.Printf("%s %s\n", padRight("reminder-time", 14), s.ReminderTime)
		fmt.Printf("%s %s\n", padRight("show-values", 14), onOff(s.ShowRecordedValues))
		fmt.Printf("%s %s\n", padRight("low-color", 14), s.LowValueColor.Hex())
		fmt.Printf("%s %s\n", padRight("high-color", 14), s.HighValueColor.Hex())
		fmt.Printf("%s %s\n", padRight("week-start", 14), strings.ToLower(s.WeekStart.String()))
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a preference",
	Long: `Change a preference.

KEYS:

  reminder        on or off
  reminder-time   HH:MM, 24-hour
  show-values     on or off; print values in report cells
  low-color       #RRGGBB color for the lowest value
  high-color      #RRGGBB color for the highest value
  week-start      first column of report grids, e.g. monday

EXAMPLES:

  daytracker settings set reminder on
  daytracker settings set reminder-time 21:00
  daytracker settings set high-color "#2E7D32"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		setter, ok := settingSetters[key]
		if !ok {
			return fmt.Errorf("unknown setting %q (one of %s)", args[0], strings.Join(settingKeys(), ", "))
		}
		if err := setter.set(args[1]); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
		if setter.reminder {
			if err := applyReminder(); err != nil {
				return err
			}
		}
		color.Green("✓ %s = %s", key, args[1])
		return nil
	},
}

// applyReminder re-registers the reminder from the stored settings.
func applyReminder() error {
	s, err := db.Settings()
	if err != nil {
		return err
	}
	if err := scheduler.Apply(s); err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	return nil
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
