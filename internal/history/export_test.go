package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession() *Session {
	return &Session{
		ID:        "20250829_101500",
		Name:      "api-review",
		CreatedAt: testTime,
		Messages: []Message{
			{
				Role:      "user",
				Content:   "how does login work?",
				Timestamp: testTime.Add(30 * time.Second),
			},
			{
				Role:      "assistant",
				Content:   "Login validates credentials against the users table.",
				Timestamp: testTime.Add(40 * time.Second),
				Sources:   []string{"auth/login.go", "db/users.go"},
			},
		},
	}
}

func TestExportMarkdown_Layout(t *testing.T) {
	md := ExportMarkdown(sampleSession())

	assert.Contains(t, md, "# api-review")
	assert.Contains(t, md, "Created: 2025-08-29 10:15:00")
	assert.Contains(t, md, "Session ID: 20250829_101500")
	assert.Contains(t, md, "## You (10:15:30)")
	assert.Contains(t, md, "## clicr (10:15:40)")
	assert.Contains(t, md, "Login validates credentials")
	assert.Contains(t, md, "- auth/login.go")
	assert.Contains(t, md, "- db/users.go")
}

func TestExportMarkdown_Deterministic(t *testing.T) {
	sess := sampleSession()
	assert.Equal(t, ExportMarkdown(sess), ExportMarkdown(sess))
}

func TestExportMarkdown_NoSourcesSection(t *testing.T) {
	sess := &Session{
		ID:        "s",
		CreatedAt: testTime,
		Messages:  []Message{{Role: "user", Content: "q", Timestamp: testTime}},
	}
	assert.NotContains(t, ExportMarkdown(sess), "Sources:")
}

func TestStoreExport_WritesFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	sess, err := s.Create("exportme", testTime)
	require.NoError(t, err)
	require.NoError(t, s.Append(sess, Message{Role: "user", Content: "q", Timestamp: testTime}))

	outPath := filepath.Join(dir, "out.md")
	require.NoError(t, s.Export(sess.ID, outPath))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# exportme"))

	// Exporting again produces identical bytes.
	require.NoError(t, s.Export(sess.ID, outPath))
	again, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestStoreExport_UnknownSession(t *testing.T) {
	s := NewStore(t.TempDir())
	assert.Error(t, s.Export("ghost", filepath.Join(t.TempDir(), "out.md")))
}
