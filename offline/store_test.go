package offline

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uno-framework/uno/vars"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorePutGetDelete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("note", "n1", map[string]interface{}{"title": "hello"}))
	got, err := s.Get("note", "n1")
	require.NoError(t, err)
	require.Equal(t, "hello", got["title"])

	_, err = s.Get("note", "missing")
	require.ErrorIs(t, err, vars.ErrNotFound)

	require.NoError(t, s.Delete("note", "n1"))
	_, err = s.Get("note", "n1")
	require.ErrorIs(t, err, vars.ErrNotFound)
}

func TestStoreList(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("note", "a", map[string]interface{}{"title": "a"}))
	require.NoError(t, s.Put("note", "b", map[string]interface{}{"title": "b"}))
	require.NoError(t, s.Put("task", "t", map[string]interface{}{"title": "t"}))

	notes, err := s.List("note")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	require.Equal(t, "a", notes["a"]["title"])
}

func TestJournal(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("note", "n1", map[string]interface{}{"title": "v1"}))
	require.NoError(t, s.Put("note", "n1", map[string]interface{}{"title": "v2"}))
	require.NoError(t, s.Delete("note", "n1"))

	pending, err := s.PendingChanges(10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.Equal(t, OpPut, pending[0].Op)
	require.Equal(t, OpDelete, pending[2].Op)

	require.NoError(t, s.MarkApplied([]string{pending[0].ID, pending[1].ID}))
	pending, err = s.PendingChanges(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, OpDelete, pending[0].Op)
}

func TestChangedFieldsDiff(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("note", "n1", map[string]interface{}{"title": "t", "body": "b"}))
	require.NoError(t, s.Put("note", "n1", map[string]interface{}{"title": "t", "body": "b2"}))

	pending, err := s.PendingChanges(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.ElementsMatch(t, []string{"title", "body"}, pending[0].ChangedFields)
	require.Equal(t, []string{"body"}, pending[1].ChangedFields)
}

func TestPendingFor(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("note", "n1", map[string]interface{}{"title": "x"}))

	ch, found, err := s.PendingFor("note", "n1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "n1", ch.Key)

	_, found, err = s.PendingFor("note", "other")
	require.NoError(t, err)
	require.False(t, found)
}

func TestApplyRemoteDoesNotJournal(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.ApplyRemote(Change{Table: "note", Key: "n1", Op: OpPut, Value: map[string]interface{}{"title": "server"}}))

	got, err := s.Get("note", "n1")
	require.NoError(t, err)
	require.Equal(t, "server", got["title"])

	pending, err := s.PendingChanges(10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestCursorRoundTrip(t *testing.T) {
	s := openTestStore(t)
	cursor, err := s.Cursor()
	require.NoError(t, err)
	require.Empty(t, cursor)

	require.NoError(t, s.SetCursor("1700000000000-3"))
	cursor, err = s.Cursor()
	require.NoError(t, err)
	require.Equal(t, "1700000000000-3", cursor)
}
