package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sadopc/daytracker/internal/entry"
	"github.com/sadopc/daytracker/internal/store"
	"github.com/sadopc/daytracker/internal/tracking"
	"github.com/spf13/cobra"
)

var (
	configsAll     bool
	configsAddType string
	configsYes     bool
)

var configsCmd = &cobra.Command{
	Use:     "configs",
	Aliases: []string{"configurations", "c"},
	Short:   "Manage what you track",
	Long: `Manage configurations, the things you record once per day.

TRACKING TYPES:

  scale   a value from 1 to 10
  yesno   yes or no
  text    a free-text line (journal); not counted by reminders

Configurations are shown in their display order. Use 'move' to reorder them
and 'deactivate' to stop tracking without losing history.`,
}

var configsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List configurations",
	Long: `List configurations in display order.

EXAMPLES:

  daytracker configs list       # Active configurations
  daytracker configs list --all # Include deactivated ones`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configs, err := db.ListConfigurations()
		if err != nil {
			return fmt.Errorf("failed to list configurations: %w", err)
		}

		faint := color.New(color.Faint)
		shown := 0
		for _, c := range configs {
			if !c.Active && !configsAll {
				continue
			}
			status := ""
			if !c.Active {
				status = faint.Sprint(" (inactive)")
			}
			fmt.Printf("%s %s %s%s\n",
				faint.Sprint(padRight(fmt.Sprintf("#%d", c.ID), 5)),
				padRight(truncate(c.Name, 24), 24),
				faint.Sprint(tracking.Name(c.TrackingType)),
				status)
			shown++
		}
		if shown == 0 {
			fmt.Println("No configurations yet. Add one with 'daytracker configs add'.")
		}
		return nil
	},
}

var configsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Start tracking something new",
	Long: `Add a configuration. Today's entry is created immediately.

EXAMPLES:

  daytracker configs add Pain                  # 1-10 scale (default)
  daytracker configs add "Took meds" -t yesno  # yes/no
  daytracker configs add Journal -t text       # free text`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := parseTrackingType(configsAddType)
		if err != nil {
			return err
		}
		c := store.NewConfiguration(strings.Join(args, " "), typ)
		if err := entries.SaveNewConfiguration(&c, today()); err != nil {
			return fmt.Errorf("failed to add configuration: %w", err)
		}
		color.Green("✓ Added %s (#%d, %s)", c.Name, c.ID, tracking.Name(typ))
		return nil
	},
}

var configsRenameCmd = &cobra.Command{
	Use:   "rename <id|name> <new name>",
	Short: "Rename a configuration",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveConfiguration(args[0])
		if err != nil {
			return err
		}
		name := strings.TrimSpace(strings.Join(args[1:], " "))
		if name == "" {
			return fmt.Errorf("configuration name is required")
		}
		old := c.Name
		c.Name = name
		if _, err := db.SaveConfiguration(c); err != nil {
			return fmt.Errorf("failed to rename: %w", err)
		}
		color.Green("✓ Renamed %s to %s", old, c.Name)
		return nil
	},
}

var configsTypeCmd = &cobra.Command{
	Use:   "type <id|name> <scale|yesno|text>",
	Short: "Change how a configuration is tracked",
	Long: `Change the tracking type of a configuration.

Only allowed while no values have been recorded for it, since recorded
values would lose their meaning.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveConfiguration(args[0])
		if err != nil {
			return err
		}
		typ, err := parseTrackingType(args[1])
		if err != nil {
			return err
		}
		n, err := db.RecordedCount(c.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%s has %d recorded values; add a new configuration instead", c.Name, n)
		}
		c.TrackingType = typ
		if _, err := db.SaveConfiguration(c); err != nil {
			return fmt.Errorf("failed to change type: %w", err)
		}
		color.Green("✓ %s is now tracked as %s", c.Name, tracking.Name(typ))
		return nil
	},
}

func setActive(active bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := resolveConfiguration(args[0])
		if err != nil {
			return err
		}
		c.Active = active
		if _, err := db.SaveConfiguration(c); err != nil {
			return err
		}
		if active {
			if _, err := entries.EnsureItems(today()); err != nil {
				return err
			}
			color.Green("✓ Tracking %s again", c.Name)
		} else {
			color.Green("✓ Stopped tracking %s", c.Name)
		}
		return nil
	}
}

var configsActivateCmd = &cobra.Command{
	Use:   "activate <id|name>",
	Short: "Resume tracking a configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  setActive(true),
}

var configsDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id|name>",
	Short: "Stop tracking a configuration, keeping its history",
	Args:  cobra.ExactArgs(1),
	RunE:  setActive(false),
}

var configsMoveCmd = &cobra.Command{
	Use:   "move <id|name> <up|down>",
	Short: "Swap a configuration with its neighbour",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveConfiguration(args[0])
		if err != nil {
			return err
		}
		var delta int
		switch strings.ToLower(args[1]) {
		case "up":
			delta = -1
		case "down":
			delta = 1
		default:
			return fmt.Errorf("direction must be up or down, got %q", args[1])
		}
		if err := entries.Move(c.ID, delta); err != nil {
			if errors.Is(err, entry.ErrNoNeighbour) {
				edge := "top"
				if delta > 0 {
					edge = "bottom"
				}
				color.Yellow("%s is already at the %s", c.Name, edge)
				return nil
			}
			return fmt.Errorf("failed to move: %w", err)
		}
		color.Green("✓ Moved %s %s", c.Name, strings.ToLower(args[1]))
		return nil
	},
}

var configsDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Delete a configuration and every entry recorded for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveConfiguration(args[0])
		if err != nil {
			return err
		}
		if !configsYes {
			fmt.Printf("Delete %s and all of its entries? [y/N] ", c.Name)
			answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if ok, _ := parseBool(strings.TrimSpace(answer)); !ok {
				fmt.Println("Aborted.")
				return nil
			}
		}
		if err := db.DeleteConfiguration(c.ID); err != nil {
			return fmt.Errorf("failed to delete: %w", err)
		}
		color.Green("✓ Deleted %s", c.Name)
		return nil
	},
}

func init() {
	configsListCmd.Flags().BoolVarP(&configsAll, "all", "a", false, "include inactive configurations")
	configsAddCmd.Flags().StringVarP(&configsAddType, "type", "t", "scale", "tracking type: scale, yesno or text")
	configsDeleteCmd.Flags().BoolVarP(&configsYes, "yes", "y", false, "skip confirmation")

	configsCmd.AddCommand(configsListCmd, configsAddCmd, configsRenameCmd, configsTypeCmd,
		configsActivateCmd, configsDeactivateCmd, configsMoveCmd, configsDeleteCmd)
	rootCmd.AddCommand(configsCmd)
}
