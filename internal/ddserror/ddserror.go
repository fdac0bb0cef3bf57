// Package ddserror defines the typed failure surface returned by every
// synchronous API in this module. It is the Go rendering of the design
// note's SecError{kind, code, message}: a single result type instead of the
// C core's out-parameter SecurityException, generalized to cover every
// error kind listed in spec section 7, not only security failures.
package ddserror

import "fmt"

// Kind classifies a failure. Callers that need to branch on failure class
// should compare against these values with errors.Is, not by inspecting
// Message, which is deliberately unstructured prose.
type Kind int

const (
	// Unspecified is the zero value and never constructed deliberately.
	Unspecified Kind = iota
	// BadParameter means the API contract was violated by the caller.
	BadParameter
	// PreconditionNotMet means the operation is valid in general but the
	// entity is in the wrong state (e.g. an uninitialised QoS provider).
	PreconditionNotMet
	// AlreadyDeleted means the handle refers to a destroyed entity.
	AlreadyDeleted
	// IllegalOperation means a parent/child relationship was violated.
	IllegalOperation
	// OutOfResources means a memory, sample, or receiver cap was hit.
	OutOfResources
	// CipherError means an AES/GMAC primitive failed.
	CipherError
	// InvalidCryptoArgument means a token or key-material was malformed.
	InvalidCryptoArgument
	// InvalidCryptoToken means a token could not be parsed at all.
	InvalidCryptoToken
	// InvalidReceiverSign means a receiver-specific MAC was missing or
	// failed verification.
	InvalidReceiverSign
	// NotAllowedBySecurity means access control denied the operation.
	NotAllowedBySecurity
	// Timeout means a deadline expired before the operation completed.
	Timeout
	// NotFound means a lookup target was absent.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case BadParameter:
		return "BadParameter"
	case PreconditionNotMet:
		return "PreconditionNotMet"
	case AlreadyDeleted:
		return "AlreadyDeleted"
	case IllegalOperation:
		return "IllegalOperation"
	case OutOfResources:
		return "OutOfResources"
	case CipherError:
		return "CipherError"
	case InvalidCryptoArgument:
		return "InvalidCryptoArgument"
	case InvalidCryptoToken:
		return "InvalidCryptoToken"
	case InvalidReceiverSign:
		return "InvalidReceiverSign"
	case NotAllowedBySecurity:
		return "NotAllowedBySecurity"
	case Timeout:
		return "Timeout"
	case NotFound:
		return "NotFound"
	default:
		return "Unspecified"
	}
}

// ExitCode maps a Kind to a process exit code for cmd/ddsrun, per spec
// section 6 ("nonzero on validation or protocol failure; exit codes are
// mapped from the error kinds in section 7"). 0 is reserved for success and
// is never returned here.
func (k Kind) ExitCode() int {
	switch k {
	case BadParameter, InvalidCryptoArgument, InvalidCryptoToken:
		return 2
	case PreconditionNotMet, AlreadyDeleted, IllegalOperation:
		return 3
	case OutOfResources:
		return 4
	case CipherError, InvalidReceiverSign, NotAllowedBySecurity:
		return 5
	case Timeout:
		return 6
	case NotFound:
		return 7
	default:
		return 1
	}
}

// Error is the concrete failure value every exported API returns. Security
// failures must never leak key material: Message is templated with only
// the failure class by convention, never interpolated key or token bytes
// (spec section 7, "User-visible").
type Error struct {
	Kind    Kind
	Code    int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s (code %d): %s: %v", e.Kind, e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s (code %d): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, ddserror.New(ddserror.NotFound, "")) style checks. In
// practice most callers use the Kind-specific Is* helpers below.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: int(kind), Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that also carries cause, used
// to preserve the %w chain across a package boundary while still attaching
// a Kind.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: int(kind), Message: fmt.Sprintf(format, args...), cause: cause}
}

// Is reports whether err is a *ddserror.Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Kind == kind
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
