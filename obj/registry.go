package obj

import (
	"context"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/uno-framework/uno/model"
)

// Resource is the verb surface the endpoint factory and the sync engine see
// for every registered class, free of the class's type parameter.
type Resource interface {
	Table() string
	Schema() *model.Schema
	Allowed(verb string) bool

	GetByID(ctx context.Context, id string) (interface{}, error)
	List(ctx context.Context, q *model.Query) (interface{}, error)
	CreateFromMap(ctx context.Context, data map[string]interface{}) (interface{}, error)
	UpdateFromMap(ctx context.Context, id string, data map[string]interface{}) (interface{}, error)
	DeleteByID(ctx context.Context, id string) error

	// CurrentVersion returns the row version for optimistic concurrency,
	// 0 when the class has no version column.
	CurrentVersion(ctx context.Context, id string) (int64, error)
}

// registry is the process-wide table → resource map. Populated by
// Register, read by the endpoint factory and the sync server.
var registry = cmap.New[Resource]()

func Lookup(table string) (Resource, bool) {
	return registry.Get(table)
}

func Tables() []string {
	return registry.Keys()
}

// Each walks the registry; iteration order is unspecified.
func Each(fn func(r Resource)) {
	for item := range registry.IterBuffered() {
		fn(item.Val)
	}
}
