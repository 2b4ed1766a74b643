package plugin

import "context"

// State of a plugin inside the host.
type State string

const (
	StateLoaded   State = "loaded"
	StateEnabled  State = "enabled"
	StateDisabled State = "disabled"
)

// Plugin is implemented by anything the host manages. Requires lists the
// names of plugins that must be enabled first.
type Plugin interface {
	Name() string
	Version() string
	Requires() []string
	Init(host *Host) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
