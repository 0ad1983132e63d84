package cache

import (
	"errors"
	"fmt"
)

// ErrKeyGenExhausted is returned by Set when every minted key collided
// with an existing entry. With 128-bit random keys this is effectively
// unreachable and treated as fatal by callers.
var ErrKeyGenExhausted = errors.New("cache: key generation attempts exhausted")

// ConnError wraps a transport-level Redis failure. Callers may treat it as
// transient.
type ConnError struct {
	Op  string
	Err error
}

func (e *ConnError) Error() string { return fmt.Sprintf("cache: %s: %v", e.Op, e.Err) }
func (e *ConnError) Unwrap() error { return e.Err }

// EncodeError wraps a serialization failure of the record itself.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("cache: encode record: %v", e.Err) }
func (e *EncodeError) Unwrap() error { return e.Err }

// CorruptError reports an entry whose stored payload no longer decodes.
// The entry is deleted before this error is returned, so a subsequent Get
// observes a clean miss.
type CorruptError struct {
	Key string
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("cache: corrupted entry %q (deleted): %v", e.Key, e.Err)
}
func (e *CorruptError) Unwrap() error { return e.Err }
