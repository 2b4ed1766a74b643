package offline

import (
	"bytes"
	"reflect"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/uno-framework/uno/vars"
	"github.com/vmihailenco/msgpack/v5"
)

// badger key layout: records live under "r:<table>:<key>" as msgpack maps,
// journal entries under "j:<seq>" with a big-endian sequence, and the pull
// cursor under "m:cursor".
var (
	recordPrefix  = []byte("r:")
	journalPrefix = []byte("j:")
	cursorKey     = []byte("m:cursor")
)

// Store is the embeddable offline store: records plus the journal of local
// mutations not yet acknowledged by the server.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
}

func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, vars.Wrap(vars.CodeOffline, "open", err)
	}
	seq, err := db.GetSequence([]byte("m:journalseq"), 128)
	if err != nil {
		db.Close()
		return nil, vars.Wrap(vars.CodeOffline, "open", err)
	}
	return &Store{db: db, seq: seq}, nil
}

func (s *Store) Close() error {
	s.seq.Release()
	return s.db.Close()
}

func recordKey(table, key string) []byte {
	return append(append(append([]byte{}, recordPrefix...), []byte(table+":")...), []byte(key)...)
}

func journalKey(seq uint64) []byte {
	k := make([]byte, len(journalPrefix)+8)
	copy(k, journalPrefix)
	for i := 0; i < 8; i++ {
		k[len(journalPrefix)+i] = byte(seq >> (56 - 8*i))
	}
	return k
}

// Put stores a record and journals the mutation. Fields that differ from
// the stored value are recorded so field-merge can tell edits apart later.
func (s *Store) Put(table, key string, value map[string]interface{}) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var changed []string
		old := map[string]interface{}{}
		if item, err := txn.Get(recordKey(table, key)); err == nil {
			item.Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &old)
			})
		}
		for field, v := range value {
			if !reflect.DeepEqual(old[field], v) {
				changed = append(changed, field)
			}
		}
		data, err := msgpack.Marshal(value)
		if err != nil {
			return err
		}
		if err = txn.Set(recordKey(table, key), data); err != nil {
			return err
		}
		baseVersion, _ := old["version"].(int64)
		return s.journal(txn, Change{
			ID: uuid.NewString(), Table: table, Key: key, Op: OpPut,
			Value: value, ChangedFields: changed, BaseVersion: baseVersion,
			At: time.Now().UnixMilli(),
		})
	})
}

func (s *Store) Delete(table, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(recordKey(table, key)); err != nil {
			return err
		}
		return s.journal(txn, Change{
			ID: uuid.NewString(), Table: table, Key: key, Op: OpDelete,
			At: time.Now().UnixMilli(),
		})
	})
}

func (s *Store) journal(txn *badger.Txn, ch Change) error {
	seq, err := s.seq.Next()
	if err != nil {
		return err
	}
	data, err := msgpack.Marshal(ch)
	if err != nil {
		return err
	}
	return txn.Set(journalKey(seq), data)
}

func (s *Store) Get(table, key string) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(table, key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &out)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, vars.Wrap(vars.CodeOffline, "get", vars.ErrNotFound)
	}
	return out, vars.Wrap(vars.CodeOffline, "get", err)
}

// List returns every record of a table keyed by record key.
func (s *Store) List(table string) (map[string]map[string]interface{}, error) {
	out := map[string]map[string]interface{}{}
	prefix := recordKey(table, "")
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(prefix):])
			var value map[string]interface{}
			if err := item.Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &value)
			}); err != nil {
				return err
			}
			out[key] = value
		}
		return nil
	})
	return out, vars.Wrap(vars.CodeOffline, "list", err)
}

// PendingChanges returns up to limit journal entries, oldest first.
func (s *Store) PendingChanges(limit int) ([]Change, error) {
	var out []Change
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(journalPrefix); it.ValidForPrefix(journalPrefix) && len(out) < limit; it.Next() {
			var ch Change
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &ch)
			}); err != nil {
				return err
			}
			out = append(out, ch)
		}
		return nil
	})
	return out, vars.Wrap(vars.CodeOffline, "pending", err)
}

// MarkApplied drops journal entries whose change IDs were acknowledged.
func (s *Store) MarkApplied(ids []string) error {
	idSet := map[string]bool{}
	for _, id := range ids {
		idSet[id] = true
	}
	return s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		var toDelete [][]byte
		for it.Seek(journalPrefix); it.ValidForPrefix(journalPrefix); it.Next() {
			var ch Change
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &ch)
			}); err != nil {
				it.Close()
				return err
			}
			if idSet[ch.ID] {
				toDelete = append(toDelete, it.Item().KeyCopy(nil))
			}
		}
		it.Close()
		for _, k := range toDelete {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// PendingFor returns the oldest unsynced local change for one record, if
// any; pull conflict detection starts here.
func (s *Store) PendingFor(table, key string) (ch Change, found bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(journalPrefix); it.ValidForPrefix(journalPrefix); it.Next() {
			var cand Change
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &cand)
			}); err != nil {
				return err
			}
			if cand.Table == table && cand.Key == key {
				ch, found = cand, true
				return nil
			}
		}
		return nil
	})
	return ch, found, vars.Wrap(vars.CodeOffline, "pendingFor", err)
}

// ApplyRemote writes a server change without journaling it.
func (s *Store) ApplyRemote(ch Change) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if ch.Op == OpDelete {
			err := txn.Delete(recordKey(ch.Table, ch.Key))
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		data, err := msgpack.Marshal(ch.Value)
		if err != nil {
			return err
		}
		return txn.Set(recordKey(ch.Table, ch.Key), data)
	})
}

// DropPending removes one journal entry by change ID, used when a resolver
// decides the remote side wins.
func (s *Store) DropPending(id string) error {
	return s.MarkApplied([]string{id})
}

func (s *Store) Cursor() (string, error) {
	var cursor string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cursorKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			cursor = string(bytes.Clone(val))
			return nil
		})
	})
	return cursor, vars.Wrap(vars.CodeOffline, "cursor", err)
}

func (s *Store) SetCursor(cursor string) error {
	return vars.Wrap(vars.CodeOffline, "cursor", s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cursorKey, []byte(cursor))
	}))
}
