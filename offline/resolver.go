package offline

// Winner says which side of a conflict survives.
type Winner int

const (
	WinnerLocal Winner = iota
	WinnerRemote
	WinnerMerged
)

// Resolver decides what happens when a pulled remote change collides with
// an unsynced local one for the same record.
type Resolver interface {
	Resolve(local, remote Change) (Winner, Change)
}

// ServerWins discards the local change.
type ServerWins struct{}

func (ServerWins) Resolve(local, remote Change) (Winner, Change) {
	return WinnerRemote, remote
}

// ClientWins keeps the local change and ignores the remote one.
type ClientWins struct{}

func (ClientWins) Resolve(local, remote Change) (Winner, Change) {
	return WinnerLocal, local
}

// LastWriteWins compares mutation timestamps; ties go to the server.
type LastWriteWins struct{}

func (LastWriteWins) Resolve(local, remote Change) (Winner, Change) {
	if local.At > remote.At {
		return WinnerLocal, local
	}
	return WinnerRemote, remote
}

// FieldMerge merges edits field by field: fields only one side touched
// take that side's value, fields both touched fall back to the newer
// timestamp. Deletes cannot merge and degrade to last-write-wins.
type FieldMerge struct{}

func (FieldMerge) Resolve(local, remote Change) (Winner, Change) {
	if local.Op == OpDelete || remote.Op == OpDelete {
		return LastWriteWins{}.Resolve(local, remote)
	}
	localTouched := touchedSet(local)
	remoteTouched := touchedSet(remote)

	merged := map[string]interface{}{}
	for field, v := range remote.Value {
		merged[field] = v
	}
	for field, v := range local.Value {
		if !localTouched(field) {
			continue
		}
		if remoteTouched(field) {
			//both sides edited the field, newer edit wins
			if local.At <= remote.At {
				continue
			}
		}
		merged[field] = v
	}
	out := local
	out.Value = merged
	out.ChangedFields = nil
	return WinnerMerged, out
}

// touchedSet treats an empty ChangedFields list as "everything", which is
// what remote changes without journal provenance look like.
func touchedSet(ch Change) func(field string) bool {
	if len(ch.ChangedFields) == 0 {
		return func(string) bool { return true }
	}
	set := map[string]bool{}
	for _, f := range ch.ChangedFields {
		set[f] = true
	}
	return func(field string) bool { return set[field] }
}
