package vars

import (
	"errors"
	"fmt"
)

// subsystem codes carried by UnoError
const (
	CodeModel    = "model"
	CodeObj      = "obj"
	CodeEndpoint = "endpoint"
	CodeCache    = "cache"
	CodeEvent    = "event"
	CodeOffline  = "offline"
	CodeSecurity = "security"
	CodePlugin   = "plugin"
	CodeMigrate  = "migrate"
)

var (
	ErrTableNameEmpty   = errors.New("table name could not be inferred from type")
	ErrNoPrimaryKey     = errors.New("struct has no field tagged as primary key")
	ErrNotFound         = errors.New("record not found")
	ErrDuplicateTable   = errors.New("same table not allowed to be registered twice")
	ErrInvalidField     = errors.New("invalid field")
	ErrNotPermitted     = errors.New("operation permission denied")
	ErrTokenInvalid     = errors.New("invalid token")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrConflict         = errors.New("record changed remotely and locally")
	ErrNetwork          = errors.New("remote unreachable")
	ErrSyncAborted      = errors.New("synchronization aborted")
	ErrIrreversible     = errors.New("migration has no down section")
	ErrCycle            = errors.New("dependency cycle detected")
	ErrUnknownPlugin    = errors.New("plugin not loaded")
	ErrBadTransition    = errors.New("illegal plugin state transition")
	ErrCacheMiss        = errors.New("cache miss")
	ErrBadCredentials   = errors.New("invalid credentials")
	ErrTotpCodeRejected = errors.New("totp code rejected")
	ErrRecoveryRejected = errors.New("recovery code rejected")
)

// UnoError attaches a subsystem code to a cause so callers can route on
// errors.Is while logs keep the origin.
type UnoError struct {
	Code string
	Op   string
	Err  error
}

func (e *UnoError) Error() string {
	if e.Op == "" {
		return e.Code + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s.%s: %v", e.Code, e.Op, e.Err)
}

func (e *UnoError) Unwrap() error { return e.Err }

func Wrap(code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &UnoError{Code: code, Op: op, Err: err}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
