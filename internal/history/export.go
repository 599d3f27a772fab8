package history

import (
	"fmt"
	"strings"
)

// roleLabel maps stored roles to export headings.
func roleLabel(role string) string {
	switch role {
	case "user":
		return "You"
	case "assistant":
		return "clicr"
	default:
		return role
	}
}

// ExportMarkdown renders a session as Markdown. The output depends only
// on the session content, so exporting twice yields identical bytes.
func ExportMarkdown(sess *Session) string {
	var sb strings.Builder

	name := sess.Name
	if name == "" {
		name = "Session " + sess.ID
	}
	fmt.Fprintf(&sb, "# %s\n\n", name)
	fmt.Fprintf(&sb, "Created: %s\n", sess.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Session ID: %s\n", sess.ID)

	for _, msg := range sess.Messages {
		fmt.Fprintf(&sb, "\n## %s (%s)\n\n", roleLabel(msg.Role), msg.Timestamp.Format("15:04:05"))
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n")

		if len(msg.Sources) > 0 {
			sb.WriteString("\nSources:\n")
			for _, src := range msg.Sources {
				fmt.Fprintf(&sb, "- %s\n", src)
			}
		}
	}

	return sb.String()
}

// Export writes the Markdown rendering of a session to path.
func (s *Store) Export(id, path string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	return atomicWrite(path, []byte(ExportMarkdown(sess)))
}
