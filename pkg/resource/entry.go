package resource

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// ErrPending is returned when reading an entry that has not settled.
var ErrPending = errors.New("resource: pending")

// Status is the state of an entry.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusError
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is one cache slot. An entry settles exactly once.
type Entry struct {
	key  string
	done chan struct{}

	mu     sync.RWMutex
	status Status
	value  any
	raw    json.RawMessage
	err    error
}

func newPending(key string) *Entry {
	return &Entry{key: key, done: make(chan struct{})}
}

func newSettled(key string, value any, raw json.RawMessage) *Entry {
	e := &Entry{key: key, done: make(chan struct{}), status: StatusSuccess, value: value, raw: raw}
	close(e.done)
	return e
}

// Key returns the entry key.
func (e *Entry) Key() string {
	return e.key
}

// Status returns the current status.
func (e *Entry) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Done returns a channel closed when the entry settles.
func (e *Entry) Done() <-chan struct{} {
	return e.done
}

// Value returns the settled value or error. It returns ErrPending while the
// entry is pending. A value seeded from embedded data is returned as
// json.RawMessage until a typed read decodes it.
func (e *Entry) Value() (any, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch e.status {
	case StatusPending:
		return nil, ErrPending
	case StatusError:
		return nil, e.err
	}
	if e.value == nil && e.raw != nil {
		return e.raw, nil
	}
	return e.value, nil
}

// Wait blocks until the entry settles or ctx is done.
func (e *Entry) Wait(ctx context.Context) (any, error) {
	select {
	case <-e.done:
		return e.Value()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Seeded reports whether the entry came from embedded server data.
func (e *Entry) Seeded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.raw != nil
}

// settle finalizes a pending entry. It reports false if the entry had
// already settled.
func (e *Entry) settle(value any, err error) bool {
	e.mu.Lock()
	if e.status != StatusPending {
		e.mu.Unlock()
		return false
	}
	if err != nil {
		e.status = StatusError
		e.err = err
	} else {
		e.status = StatusSuccess
		e.value = value
	}
	e.mu.Unlock()
	close(e.done)
	return true
}

// decoded stores a value decoded from raw data so later typed reads of
// the same type skip decoding.
func (e *Entry) decoded(value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.value == nil {
		e.value = value
	}
}

func (e *Entry) rawData() json.RawMessage {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.raw
}
