package offline

// Op is the kind of a journaled mutation.
type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// Change is one record mutation as it travels between an offline store and
// the server. ChangedFields narrows field-merge conflict detection to the
// fields this change actually touched; empty means "assume all".
type Change struct {
	ID            string                 `json:"id" msgpack:"id"`
	Table         string                 `json:"table" msgpack:"table"`
	Key           string                 `json:"key" msgpack:"key"`
	Op            Op                     `json:"op" msgpack:"op"`
	Value         map[string]interface{} `json:"value,omitempty" msgpack:"value,omitempty"`
	ChangedFields []string               `json:"changed_fields,omitempty" msgpack:"changed_fields,omitempty"`
	BaseVersion   int64                  `json:"base_version" msgpack:"base_version"`
	At            int64                  `json:"at" msgpack:"at"`
}
