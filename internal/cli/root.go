// Package cli wires the daytracker commands.
package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/sadopc/daytracker/internal/config"
	"github.com/sadopc/daytracker/internal/entry"
	"github.com/sadopc/daytracker/internal/logging"
	"github.com/sadopc/daytracker/internal/remind"
	"github.com/sadopc/daytracker/internal/store"
	"github.com/sadopc/daytracker/internal/tui"
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

var (
	configDir string
	logLevel  string

	cfg       *config.Config
	db        *store.Store
	logger    *log.Logger
	closeLog  func() error
	entries   *entry.Service
	scheduler *remind.Scheduler

	// now is swapped in tests.
	now = time.Now
)

var rootCmd = &cobra.Command{
	Use:   "daytracker",
	Short: "Daily habit and symptom tracker",
	Long: `Daytracker records one entry per day for each thing you track: a 1-10
scale, a yes/no answer or a free-text journal line.

Run without a command to open the interactive tracker.

QUICK START:

  $ daytracker configs add Pain --type scale    # Track pain on a 1-10 scale
  $ daytracker configs add Walked --type yesno  # Track a daily habit
  $ daytracker record Pain 4                    # Record today's value
  $ daytracker today                            # See today's entries
  $ daytracker report --week                    # Colored calendar report

REMINDERS:

  $ daytracker remind schedule --at 20:30   # Remind me when entries are missing
  $ daytracker remind daemon                # Deliver reminders (keep running)

MCP INTEGRATION:

  Run 'daytracker mcp' to serve your entries to MCP-compatible assistants.

DATA STORAGE:

  Configuration lives in ~/.config/daytracker/config.yaml and the SQLite
  database next to it. Use --config-dir or DAYTRACKER_DATA_DIR to move them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return initRuntime(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeRuntime()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := tui.NewApp(db, scheduler, logger, cfg.Live.GracePeriod)
		p := tea.NewProgram(app, tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding config.yaml (default ~/.config/daytracker)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func initRuntime(cmd *cobra.Command) error {
	dir := configDir
	if dir == "" {
		d, err := config.DefaultDir()
		if err != nil {
			return fmt.Errorf("failed to resolve config dir: %w", err)
		}
		dir = d
	}

	v := config.New(dir)
	if err := v.BindPFlag(config.KeyLogLevel, cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
		return err
	}

	var err error
	cfg, err = config.Load(v, dir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closeLog, err = logging.New(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}

	db, err = store.New(cfg.DBPath())
	if err != nil {
		closeLog()
		return fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("opened database", "path", cfg.DBPath(), "command", cmd.CommandPath())

	entries = entry.NewService(db, logger)
	scheduler = remind.NewScheduler(db, logger)
	return nil
}

func closeRuntime() error {
	var err error
	if db != nil {
		err = db.Close()
		db = nil
	}
	if closeLog != nil {
		if cerr := closeLog(); err == nil {
			err = cerr
		}
		closeLog = nil
	}
	return err
}
