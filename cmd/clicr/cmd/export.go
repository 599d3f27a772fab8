package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export SESSION_ID",
		Short: "Export a chat session to markdown",
		Long: `Write a session transcript to a markdown file.

Examples:
  # Export to the default file name
  clicr export 20250829_101500

  # Export to a chosen path
  clicr export api-review -o review.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default clicr_session_<id>.md)")

	return cmd
}

func runExport(cmd *cobra.Command, id, outputPath string) error {
	proj, err := resolveProject("", "")
	if err != nil {
		return err
	}

	store := proj.sessionStore()
	sess, err := resolveSession(store, id)
	if err != nil {
		return err
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("clicr_session_%s.md", sess.ID)
	}

	if err := store.Export(sess.ID, outputPath); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Session %s exported to %s\n", sess.Name, outputPath)
	return nil
}
