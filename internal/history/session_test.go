package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 8, 29, 10, 15, 0, 0, time.UTC)

func TestValidateSessionName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "my-session", false},
		{"valid underscore", "my_session_2", false},
		{"valid alphanumeric", "Session123", false},
		{"empty", "", true},
		{"spaces", "my session", true},
		{"slash", "a/b", true},
		{"dots", "../escape", true},
		{"too long", string(make([]byte, 65)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreate_TimestampID(t *testing.T) {
	s := NewStore(t.TempDir())

	sess, err := s.Create("", testTime)
	require.NoError(t, err)
	assert.Equal(t, "20250829_101500", sess.ID)
	assert.Equal(t, "Session 20250829_101500", sess.Name)
	assert.Empty(t, sess.Messages)
}

func TestCreate_CollisionGetsSuffix(t *testing.T) {
	s := NewStore(t.TempDir())

	first, err := s.Create("", testTime)
	require.NoError(t, err)
	second, err := s.Create("", testTime)
	require.NoError(t, err)
	third, err := s.Create("", testTime)
	require.NoError(t, err)

	assert.Equal(t, "20250829_101500", first.ID)
	assert.Equal(t, "20250829_101500_2", second.ID)
	assert.Equal(t, "20250829_101500_3", third.ID)
}

func TestCreate_NamedSession(t *testing.T) {
	s := NewStore(t.TempDir())

	sess, err := s.Create("auth-work", testTime)
	require.NoError(t, err)
	assert.Equal(t, "20250829_101500", sess.ID)
	assert.Equal(t, "auth-work", sess.Name)

	_, err = s.Create("auth-work", testTime.Add(time.Minute))
	assert.Error(t, err)

	_, err = s.Create("bad name!", testTime)
	assert.Error(t, err)
}

func TestGetByName(t *testing.T) {
	s := NewStore(t.TempDir())

	created, err := s.Create("auth-work", testTime)
	require.NoError(t, err)

	sess, err := s.GetByName("auth-work")
	require.NoError(t, err)
	assert.Equal(t, created.ID, sess.ID)
	assert.Equal(t, "auth-work", sess.Name)

	_, err = s.GetByName("nope")
	assert.Error(t, err)
}

func TestAppendAndGet(t *testing.T) {
	s := NewStore(t.TempDir())

	sess, err := s.Create("", testTime)
	require.NoError(t, err)

	require.NoError(t, s.Append(sess, Message{
		Role:      "user",
		Content:   "how does login work?",
		Timestamp: testTime,
	}))
	require.NoError(t, s.Append(sess, Message{
		Role:      "assistant",
		Content:   "via sessions",
		Timestamp: testTime.Add(5 * time.Second),
		Sources:   []string{"auth.go"},
	}))

	loaded, err := s.Get(sess.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, "user", loaded.Messages[0].Role)
	assert.Equal(t, []string{"auth.go"}, loaded.Messages[1].Sources)
}

func TestGet_Unknown(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Get("nope")
	assert.Error(t, err)
}

func TestList_NewestFirstWithCounts(t *testing.T) {
	s := NewStore(t.TempDir())

	older, err := s.Create("", testTime)
	require.NoError(t, err)
	require.NoError(t, s.Append(older, Message{Role: "user", Content: "q", Timestamp: testTime}))

	_, err = s.Create("", testTime.Add(time.Minute))
	require.NoError(t, err)

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "20250829_101600", infos[0].ID)
	assert.Equal(t, 0, infos[0].MessageCount)
	assert.Equal(t, older.ID, infos[1].ID)
	assert.Equal(t, 1, infos[1].MessageCount)
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	sess, err := s.Create("", testTime)
	require.NoError(t, err)
	require.NoError(t, s.Delete(sess.ID))

	_, err = s.Get(sess.ID)
	assert.Error(t, err)

	infos, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, infos)

	assert.Error(t, s.Delete(sess.ID))
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s := NewStore(dir)
	sess, err := s.Create("persisted", testTime)
	require.NoError(t, err)
	require.NoError(t, s.Append(sess, Message{Role: "user", Content: "q", Timestamp: testTime}))

	reopened := NewStore(dir)
	infos, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, sess.ID, infos[0].ID)
	assert.Equal(t, "persisted", infos[0].Name)
	assert.Equal(t, 1, infos[0].MessageCount)
}

func TestStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	sess, err := s.Create("", testTime)
	require.NoError(t, err)
	require.NoError(t, s.Append(sess, Message{Role: "user", Content: "q", Timestamp: testTime}))

	var leftovers []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() && filepath.Ext(path) == ".tmp" {
			leftovers = append(leftovers, path)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
