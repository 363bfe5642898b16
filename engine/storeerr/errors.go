// Package storeerr defines the error kinds returned across the engine
// packages: package-level sentinels for errors.Is dispatch, plus a
// wrapper that stamps the failing operation and a stack trace.
package storeerr

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a lookup, remove, or update could not
	// locate the requested key.
	ErrNotFound = errors.New("storeerr: key not found")

	// ErrDuplicate is returned when an insert's key already exists.
	ErrDuplicate = errors.New("storeerr: key already exists")

	// ErrPageFull is the internal signal raised by slotted.Allocate when
	// a page's free size cannot hold the requested record.
	// slotted.InsertRecord checks for room first and reports no-room as
	// done=false, which the enclosing btree operation turns into a split,
	// so this error must never cross the btree package boundary.
	ErrPageFull = errors.New("storeerr: page full")

	// ErrCorrupt is returned when a page's checksum or magic word fails
	// verification on load.
	ErrCorrupt = errors.New("storeerr: page corrupt")

	// ErrIo is returned verbatim from the underlying buffer or file
	// collaborator.
	ErrIo = errors.New("storeerr: io error")

	// ErrInvariantViolation marks a bug-class failure: a negative free
	// size, a descent onto a non-existent block, a slot array that no
	// longer sorts. Fatal to the in-flight operation; never recovered.
	ErrInvariantViolation = errors.New("storeerr: invariant violation")
)

// EngineError wraps a sentinel with the operation that raised it.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return e.Op + ": <nil>"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *EngineError) Unwrap() error { return e.Err }

// Wrap attaches an operation name to a sentinel or underlying error,
// stamping a stack trace onto the first wrap via pkg/errors so a logged
// EngineError prints where the failure actually originated.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Err: pkgerrors.WithStack(err)}
}

func IsNotFound(err error) bool           { return errors.Is(err, ErrNotFound) }
func IsDuplicate(err error) bool          { return errors.Is(err, ErrDuplicate) }
func IsPageFull(err error) bool           { return errors.Is(err, ErrPageFull) }
func IsCorrupt(err error) bool            { return errors.Is(err, ErrCorrupt) }
func IsIo(err error) bool                 { return errors.Is(err, ErrIo) }
func IsInvariantViolation(err error) bool { return errors.Is(err, ErrInvariantViolation) }
