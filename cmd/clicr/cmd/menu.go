package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jagdteam/clicr/internal/config"
	clicrerrors "github.com/jagdteam/clicr/internal/errors"
	"github.com/jagdteam/clicr/internal/ui"
)

// runMenu is the default action when clicr is invoked without a
// subcommand: a small interactive menu over the same operations the
// subcommands expose.
func runMenu(cmd *cobra.Command) error {
	writer := ui.New(cmd.OutOrStdout())
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	writer.Header("clicr: chat with your codebase")

	for {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "  1) chat        ask questions about the codebase")
		_, _ = fmt.Fprintln(out, "  2) watch       keep the index in sync while editing")
		_, _ = fmt.Fprintln(out, "  3) export      save a session transcript to markdown")
		_, _ = fmt.Fprintln(out, "  4) history     show past queries")
		_, _ = fmt.Fprintln(out, "  5) sessions    list saved sessions")
		_, _ = fmt.Fprintln(out, "  6) settings    show the active configuration")
		_, _ = fmt.Fprintln(out, "  7) quit")
		_, _ = fmt.Fprint(out, "\nSelect> ")

		if !scanner.Scan() {
			return scanner.Err()
		}
		choice := strings.TrimSpace(scanner.Text())

		var err error
		switch choice {
		case "1", "chat":
			err = runChat(cmd, &chatOptions{}, scanner)
		case "2", "watch":
			err = runIngest(cmd, "", &ingestOptions{watch: true})
		case "3", "export":
			err = menuExport(cmd, scanner)
		case "4", "history":
			err = runHistory(cmd, 20, "")
		case "5", "sessions":
			err = runSessionsList(cmd)
		case "6", "settings":
			err = runSettings(cmd)
		case "7", "q", "quit", "exit":
			return nil
		case "":
			continue
		default:
			writer.Warningf("unknown choice %q", choice)
			continue
		}

		if err != nil {
			_, _ = fmt.Fprint(out, clicrerrors.FormatForCLI(err))
		}
	}
}

// menuExport prompts for a session ID and exports it.
func menuExport(cmd *cobra.Command, scanner *bufio.Scanner) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprint(out, "Session ID> ")
	if !scanner.Scan() {
		return scanner.Err()
	}
	id := strings.TrimSpace(scanner.Text())
	if id == "" {
		return nil
	}
	return runExport(cmd, id, "")
}

// runSettings prints the active configuration and where it comes from.
func runSettings(cmd *cobra.Command) error {
	proj, err := resolveProject("", "")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	cfg := proj.cfg

	_, _ = fmt.Fprintf(out, "Project root:    %s\n", proj.root)
	_, _ = fmt.Fprintf(out, "Data directory:  %s\n", proj.dataDir)
	_, _ = fmt.Fprintf(out, "History dir:     %s\n", cfg.Storage.HistoryDir)
	_, _ = fmt.Fprintf(out, "User config:     %s\n", config.GetUserConfigPath())
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "Embed model:     %s\n", cfg.Cohere.EmbedModel)
	_, _ = fmt.Fprintf(out, "Chat model:      %s\n", cfg.Cohere.ChatModel)
	_, _ = fmt.Fprintf(out, "Temperature:     %.2f\n", cfg.Cohere.Temperature)
	_, _ = fmt.Fprintf(out, "Chunk size:      %d (overlap %d)\n", cfg.Chunking.Size, cfg.Chunking.Overlap)
	_, _ = fmt.Fprintf(out, "Top-K:           %d\n", cfg.Retrieval.TopK)
	_, _ = fmt.Fprintf(out, "History window:  %d\n", cfg.Retrieval.HistoryWindow)
	_, _ = fmt.Fprintf(out, "Watch interval:  %s\n", cfg.Watch.Interval)

	if cfg.Cohere.APIKey != "" {
		_, _ = fmt.Fprintln(out, "API key:         set")
	} else {
		_, _ = fmt.Fprintln(out, "API key:         not set")
	}
	return nil
}
