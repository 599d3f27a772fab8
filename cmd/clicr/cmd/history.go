package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jagdteam/clicr/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit   int
		keyword string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past queries",
		Long: `Show recent queries and answer previews from the rolling query log.

Examples:
  # Last 20 queries
  clicr history

  # Last 5 queries
  clicr history --limit 5

  # Queries mentioning authentication
  clicr history --search auth`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit, keyword)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries to show")
	cmd.Flags().StringVar(&keyword, "search", "", "Only show entries matching this keyword")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int, keyword string) error {
	proj, err := resolveProject("", "")
	if err != nil {
		return err
	}

	log, err := proj.queryLog()
	if err != nil {
		return err
	}

	var entries []history.QueryEntry
	if keyword != "" {
		entries = log.Search(keyword)
		if limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}
	} else {
		entries = log.Recent(limit)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		if keyword != "" {
			_, _ = fmt.Fprintf(out, "No queries matching %q.\n", keyword)
		} else {
			_, _ = fmt.Fprintln(out, "No queries recorded yet.")
		}
		return nil
	}

	for _, e := range entries {
		_, _ = fmt.Fprintf(out, "[%s] %s\n", e.Timestamp.Format("2006-01-02 15:04"), e.Query)
		if e.Preview != "" {
			_, _ = fmt.Fprintf(out, "    %s\n", e.Preview)
		}
		if len(e.Sources) > 0 {
			_, _ = fmt.Fprintf(out, "    sources: %v\n", e.Sources)
		}
	}
	return nil
}
