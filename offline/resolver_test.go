package offline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func conflictPair() (local, remote Change) {
	local = Change{
		ID: "l1", Table: "note", Key: "n1", Op: OpPut,
		Value:         map[string]interface{}{"title": "local title", "body": "shared"},
		ChangedFields: []string{"title"},
		At:            200,
	}
	remote = Change{
		ID: "r1", Table: "note", Key: "n1", Op: OpPut,
		Value:         map[string]interface{}{"title": "old title", "body": "remote body"},
		ChangedFields: []string{"body"},
		At:            100,
	}
	return local, remote
}

func TestServerWins(t *testing.T) {
	local, remote := conflictPair()
	winner, resolved := ServerWins{}.Resolve(local, remote)
	require.Equal(t, WinnerRemote, winner)
	require.Equal(t, remote.ID, resolved.ID)
}

func TestClientWins(t *testing.T) {
	local, remote := conflictPair()
	winner, resolved := ClientWins{}.Resolve(local, remote)
	require.Equal(t, WinnerLocal, winner)
	require.Equal(t, local.ID, resolved.ID)
}

func TestLastWriteWins(t *testing.T) {
	local, remote := conflictPair()

	winner, _ := LastWriteWins{}.Resolve(local, remote)
	require.Equal(t, WinnerLocal, winner, "newer local edit wins")

	local.At, remote.At = 100, 200
	winner, _ = LastWriteWins{}.Resolve(local, remote)
	require.Equal(t, WinnerRemote, winner)

	local.At = remote.At
	winner, _ = LastWriteWins{}.Resolve(local, remote)
	require.Equal(t, WinnerRemote, winner, "ties go to the server")
}

func TestFieldMergeDisjointEdits(t *testing.T) {
	local, remote := conflictPair()
	winner, merged := FieldMerge{}.Resolve(local, remote)
	require.Equal(t, WinnerMerged, winner)
	require.Equal(t, "local title", merged.Value["title"])
	require.Equal(t, "remote body", merged.Value["body"])
}

func TestFieldMergeBothTouched(t *testing.T) {
	local, remote := conflictPair()
	local.ChangedFields = []string{"title"}
	remote.ChangedFields = []string{"title"}

	_, merged := FieldMerge{}.Resolve(local, remote)
	require.Equal(t, "local title", merged.Value["title"], "newer edit wins the contested field")

	local.At, remote.At = 100, 200
	_, merged = FieldMerge{}.Resolve(local, remote)
	require.Equal(t, "old title", merged.Value["title"])
}

func TestFieldMergeDeleteDegradesToLWW(t *testing.T) {
	local, remote := conflictPair()
	remote.Op = OpDelete
	winner, _ := FieldMerge{}.Resolve(local, remote)
	require.Equal(t, WinnerLocal, winner, "local put is newer than the remote delete")
}
