package obj

import (
	"time"

	"github.com/uno-framework/uno/cache"
	"github.com/uno-framework/uno/event"
	"github.com/uno-framework/uno/model"
)

// Option is parameter to register a class.
type Option struct {
	Store *model.Store
	Cache cache.Cache
	Bus   *event.Bus
	// Expose lists the REST verbs the endpoint factory may mount:
	// get, list, create, update, delete. Empty means not exposed at all.
	Expose   []string
	CacheTTL time.Duration
}

func mergeNewOptions(o *Option, options ...*Option) (out *Option) {
	for _, option := range options {
		if option.Store != nil {
			o.Store = option.Store
		}
		if option.Cache != nil {
			o.Cache = option.Cache
		}
		if option.Bus != nil {
			o.Bus = option.Bus
		}
		if len(option.Expose) > 0 {
			o.Expose = option.Expose
		}
		if option.CacheTTL > 0 {
			o.CacheTTL = option.CacheTTL
		}
	}
	return o
}
