// Package bterr defines the error kinds shared across the block device,
// node codec, tree engine, and index lifecycle layers.
package bterr

import "fmt"

// BadArgument reports a malformed caller input: a key of the wrong
// length, a non-positive key size, or a key size that would produce a
// branching factor below 4.
type BadArgument struct {
	Reason string
}

func (e *BadArgument) Error() string {
	return fmt.Sprintf("bad argument: %s", e.Reason)
}

// NewBadArgument builds a BadArgument error with the given reason.
func NewBadArgument(reason string) error {
	return &BadArgument{Reason: reason}
}

// DuplicateKey reports that an insert was rejected because the key is
// already present in the index. It is not fatal: the operation is a
// no-op and the caller may continue using the index.
type DuplicateKey struct {
	Key []byte
}

func (e *DuplicateKey) Error() string {
	return fmt.Sprintf("duplicate key: %x", e.Key)
}

// NewDuplicateKey builds a DuplicateKey error for the given key.
func NewDuplicateKey(key []byte) error {
	return &DuplicateKey{Key: append([]byte(nil), key...)}
}

// IoError wraps an underlying I/O failure with the offset and byte
// count that were being read or written when it occurred. It is fatal
// to the in-flight operation.
type IoError struct {
	Offset int64
	Count  int
	Err    error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error at offset %d (%d bytes): %v", e.Offset, e.Count, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

// NewIoError wraps err as an IoError at the given offset/count. Returns
// nil if err is nil, so callers can write `return NewIoError(off, n, err)`
// unconditionally.
func NewIoError(offset int64, count int, err error) error {
	if err == nil {
		return nil
	}
	return &IoError{Offset: offset, Count: count, Err: err}
}

// CorruptIndex reports that a meta-block or node-block failed a
// structural check: an entry count out of bounds, an unrecognized
// internal-flag byte, a file length that is not a multiple of the
// block size, or a checksum mismatch. Fatal.
type CorruptIndex struct {
	Reason string
}

func (e *CorruptIndex) Error() string {
	return fmt.Sprintf("corrupt index: %s", e.Reason)
}

// NewCorruptIndex builds a CorruptIndex error with the given reason.
func NewCorruptIndex(reason string) error {
	return &CorruptIndex{Reason: reason}
}

// NotFound is the sentinel value search returns in its error slot when
// no entry has the requested key. It marks a distinguished miss rather
// than a failure, and is a single canonical value so callers (e.g. the
// command layer reporting to a user) can tell a miss apart from a real
// error with errors.Is.
var NotFound = &notFoundError{}

type notFoundError struct{}

func (*notFoundError) Error() string { return "not found" }
