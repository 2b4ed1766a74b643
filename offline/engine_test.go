package offline

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uno-framework/uno/async"
	"github.com/uno-framework/uno/vars"
)

// fakeRemote records pushes and serves a scripted pull feed.
type fakeRemote struct {
	mu       sync.Mutex
	pushed   []Change
	feed     []Change
	failPush int
	ackNone  bool
}

func (f *fakeRemote) Push(ctx context.Context, changes []Change) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPush > 0 {
		f.failPush--
		return nil, vars.ErrNetwork
	}
	if f.ackNone {
		return nil, nil
	}
	f.pushed = append(f.pushed, changes...)
	acked := make([]string, len(changes))
	for i, ch := range changes {
		acked[i] = ch.ID
	}
	return acked, nil
}

func (f *fakeRemote) Pull(ctx context.Context, cursor string, limit int) ([]Change, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	if start >= len(f.feed) {
		return nil, cursor, nil
	}
	end := start + limit
	if end > len(f.feed) {
		end = len(f.feed)
	}
	return f.feed[start:end], strconv.Itoa(end), nil
}

func fastRetry() *EngineOption {
	return &EngineOption{Retry: &async.RetryOption{InitialInterval: time.Millisecond, MaxElapsedTime: time.Second}}
}

func TestPushDrainsJournal(t *testing.T) {
	s := openTestStore(t)
	remote := &fakeRemote{}
	engine := NewEngine(s, remote, fastRetry())

	require.NoError(t, s.Put("note", "n1", map[string]interface{}{"title": "a"}))
	require.NoError(t, s.Put("note", "n2", map[string]interface{}{"title": "b"}))

	pushed, err := engine.Push(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, pushed)
	require.Len(t, remote.pushed, 2)

	pending, err := s.PendingChanges(10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestPushRetriesTransientFailures(t *testing.T) {
	s := openTestStore(t)
	remote := &fakeRemote{failPush: 2}
	engine := NewEngine(s, remote, fastRetry())

	require.NoError(t, s.Put("note", "n1", map[string]interface{}{"title": "a"}))
	pushed, err := engine.Push(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, pushed)
}

func TestPushAbortsWhenNothingAcked(t *testing.T) {
	s := openTestStore(t)
	remote := &fakeRemote{ackNone: true}
	engine := NewEngine(s, remote, fastRetry())

	require.NoError(t, s.Put("note", "n1", map[string]interface{}{"title": "a"}))
	_, err := engine.Push(context.Background())
	require.ErrorIs(t, err, vars.ErrSyncAborted)

	pending, err := s.PendingChanges(10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "refused changes stay journaled")
}

func TestPullAppliesAndAdvancesCursor(t *testing.T) {
	s := openTestStore(t)
	remote := &fakeRemote{feed: []Change{
		{ID: "r1", Table: "note", Key: "n1", Op: OpPut, Value: map[string]interface{}{"title": "server"}, At: 100},
		{ID: "r2", Table: "note", Key: "n2", Op: OpPut, Value: map[string]interface{}{"title": "other"}, At: 110},
	}}
	engine := NewEngine(s, remote, fastRetry())

	applied, err := engine.Pull(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, applied)

	got, err := s.Get("note", "n1")
	require.NoError(t, err)
	require.Equal(t, "server", got["title"])

	cursor, err := s.Cursor()
	require.NoError(t, err)
	require.Equal(t, "2", cursor)

	// nothing new on the second pull
	applied, err = engine.Pull(context.Background())
	require.NoError(t, err)
	require.Zero(t, applied)
}

func TestPullConflictServerWins(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("note", "n1", map[string]interface{}{"title": "local"}))

	remote := &fakeRemote{feed: []Change{
		{ID: "r1", Table: "note", Key: "n1", Op: OpPut, Value: map[string]interface{}{"title": "server"}, At: 100},
	}}
	engine := NewEngine(s, remote, &EngineOption{Resolver: ServerWins{}})

	applied, err := engine.Pull(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, applied)

	got, err := s.Get("note", "n1")
	require.NoError(t, err)
	require.Equal(t, "server", got["title"])

	pending, err := s.PendingChanges(10)
	require.NoError(t, err)
	require.Empty(t, pending, "losing local change is dropped")
}

func TestPullConflictClientWins(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("note", "n1", map[string]interface{}{"title": "local"}))

	remote := &fakeRemote{feed: []Change{
		{ID: "r1", Table: "note", Key: "n1", Op: OpPut, Value: map[string]interface{}{"title": "server"}, At: 100},
	}}
	engine := NewEngine(s, remote, &EngineOption{Resolver: ClientWins{}})

	applied, err := engine.Pull(context.Background())
	require.NoError(t, err)
	require.Zero(t, applied)

	got, err := s.Get("note", "n1")
	require.NoError(t, err)
	require.Equal(t, "local", got["title"])

	pending, err := s.PendingChanges(10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "local change still waits for the next push")
}

func TestSyncPushThenPull(t *testing.T) {
	s := openTestStore(t)
	remote := &fakeRemote{feed: []Change{
		{ID: "r1", Table: "note", Key: "n9", Op: OpPut, Value: map[string]interface{}{"title": "from server"}, At: 50},
	}}
	engine := NewEngine(s, remote, fastRetry())

	require.NoError(t, s.Put("note", "n1", map[string]interface{}{"title": "mine"}))
	require.NoError(t, engine.Sync(context.Background()))

	require.Len(t, remote.pushed, 1)
	got, err := s.Get("note", "n9")
	require.NoError(t, err)
	require.Equal(t, "from server", got["title"])
}
