package cuemap

import "fmt"

// Kind identifies a class of engine error, mirroring the error-kind
// taxonomy callers at the HTTP boundary need to map onto status codes.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindInvalidCue      Kind = "invalid_cue"
	KindInvalidQuery    Kind = "invalid_query"
	KindTenantMissing   Kind = "tenant_missing"
	KindSnapshotIO      Kind = "snapshot_io"
	KindSnapshotCorrupt Kind = "snapshot_corrupt"
	// KindAuthRequired, KindAuthInvalid, and KindRateLimited never originate
	// inside the engine; they exist here so the HTTP boundary layer has one
	// Kind enum to map every §7 error onto a status code from.
	KindAuthRequired Kind = "auth_required"
	KindAuthInvalid  Kind = "auth_invalid"
	KindRateLimited  Kind = "rate_limited"
)

// Error is a typed engine error. Callers should use errors.As to recover
// the Kind rather than comparing message strings.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cuemap: %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("cuemap: %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ErrNotFound) style sentinel checks against Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func wrapErr(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Sentinel errors for errors.Is comparisons against a specific kind without
// needing the surrounding Op/Message.
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrInvalidCue      = &Error{Kind: KindInvalidCue}
	ErrInvalidQuery    = &Error{Kind: KindInvalidQuery}
	ErrTenantMissing   = &Error{Kind: KindTenantMissing}
	ErrSnapshotIO      = &Error{Kind: KindSnapshotIO}
	ErrSnapshotCorrupt = &Error{Kind: KindSnapshotCorrupt}
)
