package vars

// Result is the success/failure carrier used where outcomes are collected
// rather than returned one at a time, e.g. hook invocation and sync batches.
type Result[T any] struct {
	Value T
	Err   error
}

func Success[T any](v T) Result[T] { return Result[T]{Value: v} }

func Failure[T any](err error) Result[T] { return Result[T]{Err: err} }

func (r Result[T]) Ok() bool { return r.Err == nil }

// Get returns the value or the zero value plus the stored error.
func (r Result[T]) Get() (T, error) { return r.Value, r.Err }
