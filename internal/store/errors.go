package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies store failures. The set is closed.
type Kind int

const (
	// KindStore is any backing-store fault that is not a conflict.
	KindStore Kind = iota
	// KindConnectionInit means the store could not open its connection.
	KindConnectionInit
	// KindConcurrencyConflict means the record's version changed since it
	// was last read. Callers should re-read and retry.
	KindConcurrencyConflict
)

func (k Kind) String() string {
	switch k {
	case KindConnectionInit:
		return "connection init failure"
	case KindConcurrencyConflict:
		return "concurrency conflict"
	default:
		return "store failure"
	}
}

// Sentinel errors wrapped inside *Error.
var (
	ErrDisconnected    = errors.New("store is disconnected")
	ErrTxActive        = errors.New("transaction already active")
	ErrStaleVersion    = errors.New("stale version")
	ErrNoResult        = errors.New("no result")
	ErrNotUnique       = errors.New("more than one result")
	ErrUnknownProperty = errors.New("unknown property")
	ErrInvalidMapping  = errors.New("invalid mapping")
)

// serializationFailure is the SQLSTATE PostgreSQL reports when concurrent
// transactions cannot be serialized.
const serializationFailure = "40001"

// Error is the single error type returned by RecordStore operations.
type Error struct {
	Op   string // failing operation, qualified by table: "t_personne.update"
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConflict reports whether err is an optimistic-concurrency conflict.
func IsConflict(err error) bool {
	return KindOf(err) == KindConcurrencyConflict
}

// IsConnectionInit reports whether err is a connection init failure.
func IsConnectionInit(err error) bool {
	return KindOf(err) == KindConnectionInit
}

// KindOf returns the Kind of err. Errors not produced by this package are
// reported as KindStore.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindStore
}

// isConflict looks through the whole chain, so a conflict nested inside a
// commit failure is still reported as a conflict.
func isConflict(err error) bool {
	if errors.Is(err, ErrStaleVersion) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == serializationFailure {
		return true
	}
	return false
}

// wrap turns err into an *Error for op, classifying conflicts.
// Errors that are already *Error pass through unchanged.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if isConflict(err) {
		return &Error{Op: op, Kind: KindConcurrencyConflict, Err: err}
	}
	return &Error{Op: op, Kind: KindStore, Err: err}
}
