package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sadopc/daytracker/internal/remind"
	"github.com/sadopc/daytracker/internal/store"
	"github.com/spf13/cobra"
)

var remindAt string

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Manage the daily reminder",
	Long: `Manage the daily reminder.

Once a day, at the configured time, the reminder checks whether any active
scale or yes/no configuration is still unrecorded for today and, if so,
shows a desktop notification. Text configurations never trigger it.

The reminder is delivered by 'daytracker remind daemon', which must be
running (for example from your session's autostart).`,
}

var remindScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Turn the reminder on",
	Long: `Turn the reminder on, optionally at a new time.

EXAMPLES:

  daytracker remind schedule            # At the stored time (default 18:00)
  daytracker remind schedule --at 21:15`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if remindAt != "" {
			t, err := store.ParseTimeOfDay(remindAt)
			if err != nil {
				return err
			}
			if err := db.SetReminderTime(t); err != nil {
				return err
			}
		}
		if err := db.SetReminderEnabled(true); err != nil {
			return err
		}
		s, err := db.Settings()
		if err != nil {
			return err
		}
		w, err := scheduler.Schedule(s.ReminderTime)
		if err != nil {
			return fmt.Errorf("failed to schedule reminder: %w", err)
		}
		color.Green("✓ Reminder set for %s (next check %s)", s.ReminderTime, w.NextRun.Local().Format("Mon 15:04"))
		return nil
	},
}

var remindCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Turn the reminder off",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.SetReminderEnabled(false); err != nil {
			return err
		}
		if err := scheduler.Cancel(); err != nil {
			return fmt.Errorf("failed to cancel reminder: %w", err)
		}
		color.Green("✓ Reminder off")
		return nil
	},
}

var remindStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the reminder registration",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := db.Settings()
		if err != nil {
			return err
		}
		faint := color.New(color.Faint)
		w, err := db.GetWork(remind.WorkID)
		if errors.Is(err, store.ErrNotFound) {
			if s.ReminderEnabled {
				color.Yellow("Reminder is on at %s but not registered; run 'daytracker remind schedule'", s.ReminderTime)
			} else {
				fmt.Println("Reminder is off.")
			}
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Reminder at %s\n", s.ReminderTime)
		fmt.Printf("  next check  %s\n", w.NextRun.Local().Format("Mon Jan 2 15:04"))
		if w.Attempts > 0 {
			color.Yellow("  retrying    attempt %d", w.Attempts)
		}
		fmt.Println(faint.Sprintf("  registered  %s", w.RegisteredAt.Local().Format(time.DateTime)))
		return nil
	},
}

var remindCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the reminder check once, now",
	RunE: func(cmd *cobra.Command, args []string) error {
		missing, err := db.MissingCount(today())
		if err != nil {
			return err
		}
		res := remind.NewWorker(db, desktopNotifier(), logger).Run(cmd.Context())
		if res == remind.Retry {
			return fmt.Errorf("reminder check failed; see %s", cfg.LogFile)
		}
		if missing == 0 {
			color.Green("✓ Everything recorded for today")
		} else {
			color.Yellow("%d still missing today", missing)
		}
		return nil
	},
}

var remindDaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Deliver reminders until stopped",
	Long: `Run the reminder dispatcher in the foreground.

It re-registers the reminder from current settings on start, follows
settings changes made from other daytracker processes, and runs the check
whenever it is due. Stop it with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		dispatcher := remind.NewDispatcher(db, logger, cfg.Daemon.PollInterval)
		dispatcher.Register(remind.WorkID, remind.NewWorker(db, desktopNotifier(), logger))
		daemon := remind.NewDaemon(db, scheduler, dispatcher, logger, cfg.Daemon.PollInterval)

		color.New(color.Faint).Printf("Reminder daemon running, logging to %s\n", cfg.LogFile)
		return daemon.Run(ctx)
	},
}

func desktopNotifier() remind.DesktopNotifier {
	return remind.DesktopNotifier{
		AppName: cfg.Notifications.AppName,
		Enabled: cfg.Notifications.Enabled,
	}
}

func init() {
	remindScheduleCmd.Flags().StringVar(&remindAt, "at", "", "reminder time, HH:MM")
	remindCmd.AddCommand(remindScheduleCmd, remindCancelCmd, remindStatusCmd, remindCheckCmd, remindDaemonCmd)
	rootCmd.AddCommand(remindCmd)
}
