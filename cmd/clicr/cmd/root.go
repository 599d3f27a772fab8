// Package cmd provides the CLI commands for clicr.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	clicrerrors "github.com/jagdteam/clicr/internal/errors"
	"github.com/jagdteam/clicr/internal/logging"
	"github.com/jagdteam/clicr/pkg/version"
)

// Debug logging flag
var (
	debugMode      bool
	viewSession    string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the clicr CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clicr",
		Short: "Chat with your codebase from the terminal",
		Long: `clicr indexes a local codebase into a vector store and answers
questions about it through Cohere's hosted models.

Run 'clicr ingest' once to build the index, then 'clicr chat' to ask
questions. Running 'clicr' with no arguments opens the interactive menu.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if viewSession != "" {
				return runSessionsShow(cmd, viewSession)
			}
			if len(args) > 0 {
				return cmd.Help()
			}
			return runMenu(cmd)
		},
	}

	cmd.SetVersionTemplate("clicr version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.clicr/logs/")
	cmd.Flags().StringVar(&viewSession, "view-session", "", "Print a session transcript and exit")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging enables debug logging when the flag is set.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}

	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))
	return nil
}

// stopLogging flushes and closes the debug log.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command, printing structured errors to stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprint(os.Stderr, clicrerrors.FormatForCLI(err))
	}
	return err
}
