package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jagdteam/clicr/internal/chat"
	clicrerrors "github.com/jagdteam/clicr/internal/errors"
	"github.com/jagdteam/clicr/internal/history"
	"github.com/jagdteam/clicr/internal/llm"
	"github.com/jagdteam/clicr/internal/ui"
)

type chatOptions struct {
	session   string
	noHistory bool
	topK      int
}

func newChatCmd() *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions about the indexed codebase",
		Long: `Start an interactive chat over the indexed codebase. Each question
is answered from the most relevant chunks, with the source files listed
under the answer.

Inside the chat:
  /export [file]   write the session transcript to a markdown file
  exit, quit       end the chat

Examples:
  # Start a chat
  clicr chat

  # Resume or create a named session
  clicr chat --session api-review

  # Answer each question in isolation
  clicr chat --no-history`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts, bufio.NewScanner(cmd.InOrStdin()))
		},
	}

	cmd.Flags().StringVar(&opts.session, "session", "", "Named session to create or resume")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not send previous turns as context")
	cmd.Flags().IntVar(&opts.topK, "top-k", 0, "Number of chunks retrieved per question (default from config)")

	return cmd
}

func runChat(cmd *cobra.Command, opts *chatOptions, scanner *bufio.Scanner) error {
	proj, err := resolveProject("", "")
	if err != nil {
		return err
	}
	if err := proj.cfg.RequireAPIKey(); err != nil {
		return err
	}
	if !proj.indexExists() {
		return clicrerrors.New(clicrerrors.ErrCodeInvalidInput, "no index found for this project").
			WithSuggestion("run 'clicr ingest' first")
	}

	embedder, err := proj.newEmbedder()
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	index, err := proj.openIndex(embedder.Dimensions())
	if err != nil {
		return err
	}
	defer func() { _ = index.Close() }()

	client, err := proj.newChatClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	topK := proj.cfg.Retrieval.TopK
	if opts.topK > 0 {
		topK = opts.topK
	}
	orch, err := chat.New(chat.Options{
		Embedder:      embedder,
		Retriever:     index,
		Client:        client,
		TopK:          topK,
		HistoryWindow: proj.cfg.Retrieval.HistoryWindow,
		NoHistory:     opts.noHistory,
	})
	if err != nil {
		return err
	}

	sessions := proj.sessionStore()
	sess, err := resumeOrCreateSession(sessions, opts.session)
	if err != nil {
		return err
	}

	queries, err := proj.queryLog()
	if err != nil {
		return err
	}

	writer := ui.New(cmd.OutOrStdout())
	writer.Header(fmt.Sprintf("clicr chat (session %s)", sess.Name))
	writer.Status("", "Ask about the codebase. Type 'exit' to leave, '/export' to save the transcript.")
	writer.Newline()

	// A resumed transcript only becomes model context when history is on.
	var turns []chat.Turn
	if !opts.noHistory {
		turns = turnsFromSession(sess)
	}

	for {
		fmt.Fprint(cmd.OutOrStdout(), "You> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			writer.Status("", "Bye.")
			return nil
		case strings.HasPrefix(line, "/export"):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/export"))
			if path == "" {
				path = fmt.Sprintf("clicr_session_%s.md", sess.ID)
			}
			if err := sessions.Export(sess.ID, path); err != nil {
				writer.Errorf("export failed: %v", err)
				continue
			}
			writer.Successf("Session exported to %s", path)
			continue
		}

		ctx := cmd.Context()
		now := time.Now()

		answer, err := orch.Ask(ctx, line, turns)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprint(cmd.OutOrStdout(), clicrerrors.FormatForCLI(err))
			continue
		}

		writer.Answer(answer.Text)
		writer.Sources(answer.Sources)
		writer.Newline()

		if !opts.noHistory {
			turns = append(turns, chat.Turn{Question: line, Answer: answer.Text})
		}

		if err := sessions.Append(sess, history.Message{
			Role:      llm.RoleUser,
			Content:   line,
			Timestamp: now,
		}); err != nil {
			writer.Warningf("failed to save question: %v", err)
		}
		if err := sessions.Append(sess, history.Message{
			Role:      llm.RoleAssistant,
			Content:   answer.Text,
			Timestamp: time.Now(),
			Sources:   answer.Sources,
		}); err != nil {
			writer.Warningf("failed to save answer: %v", err)
		}
		if err := queries.Record(line, answer.Text, answer.Sources, now); err != nil {
			writer.Warningf("failed to record query: %v", err)
		}
	}

	return scanner.Err()
}

// resumeOrCreateSession reuses an existing named session so repeated
// chats under the same name keep one transcript.
func resumeOrCreateSession(sessions *history.Store, name string) (*history.Session, error) {
	if name != "" {
		if sess, err := sessions.GetByName(name); err == nil {
			return sess, nil
		}
	}
	return sessions.Create(name, time.Now())
}

// turnsFromSession rebuilds question/answer pairs from saved messages.
func turnsFromSession(sess *history.Session) []chat.Turn {
	var turns []chat.Turn
	var pending string
	havePending := false

	for _, msg := range sess.Messages {
		switch msg.Role {
		case llm.RoleUser:
			pending = msg.Content
			havePending = true
		case llm.RoleAssistant:
			if havePending {
				turns = append(turns, chat.Turn{Question: pending, Answer: msg.Content})
				havePending = false
			}
		}
	}
	return turns
}
