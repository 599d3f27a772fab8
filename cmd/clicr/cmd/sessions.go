package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jagdteam/clicr/internal/history"
	"github.com/jagdteam/clicr/internal/llm"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage chat sessions",
		Long: `List, inspect, or delete saved chat sessions.

Examples:
  # List all sessions
  clicr sessions

  # Show the transcript of one session
  clicr sessions show api-review

  # Delete a session
  clicr sessions delete 20250829_101500`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSessionsList(cmd)
		},
	}

	cmd.AddCommand(newSessionsShowCmd())
	cmd.AddCommand(newSessionsDeleteCmd())

	return cmd
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsShow(cmd, args[0])
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a session and its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsDelete(cmd, args[0])
		},
	}
}

// resolveSession accepts either a session ID or a session name.
func resolveSession(store *history.Store, idOrName string) (*history.Session, error) {
	if sess, err := store.Get(idOrName); err == nil {
		return sess, nil
	}
	return store.GetByName(idOrName)
}

func runSessionsList(cmd *cobra.Command) error {
	proj, err := resolveProject("", "")
	if err != nil {
		return err
	}

	sessions, err := proj.sessionStore().List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(out, "No sessions found.")
		_, _ = fmt.Fprintln(out, "Start one with: clicr chat")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCREATED\tMESSAGES")
	for _, s := range sessions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			s.ID, s.Name, s.CreatedAt.Format("2006-01-02 15:04"), s.MessageCount)
	}
	return w.Flush()
}

func runSessionsShow(cmd *cobra.Command, id string) error {
	proj, err := resolveProject("", "")
	if err != nil {
		return err
	}

	sess, err := resolveSession(proj.sessionStore(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s (id %s, created %s)\n",
		sess.Name, sess.ID, sess.CreatedAt.Format("2006-01-02 15:04:05"))

	for _, msg := range sess.Messages {
		label := "clicr"
		if msg.Role == llm.RoleUser {
			label = "You"
		}
		_, _ = fmt.Fprintf(out, "\n%s (%s):\n%s\n",
			label, msg.Timestamp.Format("15:04:05"), msg.Content)
		if len(msg.Sources) > 0 {
			_, _ = fmt.Fprintln(out, "Sources:")
			for _, src := range msg.Sources {
				_, _ = fmt.Fprintf(out, "  - %s\n", src)
			}
		}
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, id string) error {
	proj, err := resolveProject("", "")
	if err != nil {
		return err
	}

	store := proj.sessionStore()
	sess, err := resolveSession(store, id)
	if err != nil {
		return err
	}
	if err := store.Delete(sess.ID); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted.\n", sess.Name)
	return nil
}
