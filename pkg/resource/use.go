package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	ferrors "github.com/vango-dev/firebolt/internal/errors"
)

// Result is the tri-state outcome of a typed resource access.
type Result[T any] struct {
	Status Status
	Value  T
	Err    error

	ready <-chan struct{}
}

// Ready returns a channel closed when the underlying entry settles. It is
// already closed for settled results.
func (r Result[T]) Ready() <-chan struct{} {
	if r.ready == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return r.ready
}

// Pending reports whether the access must suspend.
func (r Result[T]) Pending() bool {
	return r.Status == StatusPending
}

// Use reads key from c, starting fn if the key has no entry yet.
func Use[T any](ctx context.Context, c *Cache, key string, fn func(ctx context.Context) (T, error)) Result[T] {
	e := c.GetOrCreate(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	return Read[T](e)
}

// Read converts an entry into a typed result.
func Read[T any](e *Entry) Result[T] {
	value, err := e.Value()
	switch {
	case errors.Is(err, ErrPending):
		return Result[T]{Status: StatusPending, ready: e.Done()}
	case err != nil:
		return Result[T]{Status: StatusError, Err: err, ready: e.Done()}
	}

	if v, ok := value.(T); ok {
		return Result[T]{Status: StatusSuccess, Value: v, ready: e.Done()}
	}
	if raw := e.rawData(); raw != nil {
		var v T
		if derr := json.Unmarshal(raw, &v); derr != nil {
			return Result[T]{Status: StatusError, Err: decodeError(e.key, derr), ready: e.Done()}
		}
		e.decoded(v)
		return Result[T]{Status: StatusSuccess, Value: v, ready: e.Done()}
	}
	if value == nil {
		var zero T
		return Result[T]{Status: StatusSuccess, Value: zero, ready: e.Done()}
	}
	return Result[T]{
		Status: StatusError,
		Err:    decodeError(e.key, fmt.Errorf("value is %T", value)),
		ready:  e.Done(),
	}
}

func decodeError(key string, err error) error {
	return ferrors.New("E006").WithField("key", key).Wrap(err)
}
