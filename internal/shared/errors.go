package shared

import "errors"

// Error kinds shared by every domain package.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied covers missing permission bits, inactive memberships and non-inviter actions.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrExpired indicates an invitation past its lifetime or already answered.
	ErrExpired = errors.New("expired")
	// ErrConflict covers duplicates, email mismatches and already processed records.
	ErrConflict = errors.New("conflict")
	// ErrInvalid indicates malformed input.
	ErrInvalid = errors.New("invalid input")
	// ErrRateLimited indicates the caller exceeded a configured quota.
	ErrRateLimited = errors.New("rate limited")
)

// Error is a domain failure with a log-only detail and a sanitized public message.
type Error struct {
	Kind   error
	Detail string
	Public string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, detail, public string) error {
	if public == "" {
		public = kind.Error()
	}
	return &Error{Kind: kind, Detail: detail, Public: public}
}

// NotFound builds an ErrNotFound failure.
func NotFound(detail, public string) error { return newError(ErrNotFound, detail, public) }

// PermissionDenied builds an ErrPermissionDenied failure. The public message is always generic.
func PermissionDenied(detail string) error {
	return newError(ErrPermissionDenied, detail, "Permission Denied")
}

// Expired builds an ErrExpired failure.
func Expired(detail, public string) error { return newError(ErrExpired, detail, public) }

// Conflict builds an ErrConflict failure.
func Conflict(detail, public string) error { return newError(ErrConflict, detail, public) }

// Invalid builds an ErrInvalid failure.
func Invalid(detail, public string) error { return newError(ErrInvalid, detail, public) }

// RateLimited builds an ErrRateLimited failure.
func RateLimited(detail, public string) error { return newError(ErrRateLimited, detail, public) }

// UserSafeMessage returns the message that may be shown to API clients.
func UserSafeMessage(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Public
	}
	return "internal error"
}
