package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sadopc/daytracker/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout. Logs go to the log file only.

CLIENT CONFIGURATION:

  {
    "mcpServers": {
      "daytracker": {
        "command": "daytracker",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  list_configurations  What is tracked, in display order
  get_day              Every entry for a day
  record_entry         Record a value or comment
  missing_count        Unrecorded reminder-eligible entries for a day
  get_report           Month or week report with averages

AVAILABLE RESOURCES:

  daytracker://today     Today's entries
  daytracker://settings  Reminder and display preferences`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := mcp.NewServer(db, logger, Version)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			cancel()
		}()

		logger.Info("mcp server starting")
		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
