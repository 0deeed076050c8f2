// Package dcerr defines the error taxonomy shared by every DC locator
// component (spec.md §7): a small set of sentinel kinds, checked with
// errors.Is, each of which can carry an attached root cause.
package dcerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies one of the error categories in spec.md §7. Kind
// values are sentinel errors rather than a custom comparable type so
// that callers can use the standard errors.Is/errors.As machinery.
type Kind struct{ msg string }

func (k *Kind) Error() string { return k.msg }

var (
	// Configuration marks a malformed or internally inconsistent
	// request: unsupported flag, bad combination, unqualified
	// domain, bad URL, or an FQDN that could not be determined.
	Configuration = &Kind{"configuration error"}

	// NotSupported marks the RPC-to-named-computer path, which this
	// locator does not implement.
	NotSupported = &Kind{"operation not supported"}

	// Communication marks a network I/O failure: resolve, connect,
	// read, write, or decode.
	Communication = &Kind{"communication error"}

	// ServiceUnavailable marks a lookup that produced candidates but
	// none of them survived probing and filtering.
	ServiceUnavailable = &Kind{"service unavailable"}

	// NameNotFound marks an SRV name that does not exist at all.
	NameNotFound = &Kind{"name not found"}

	// NoSuchAttribute marks an LDAP response that decoded correctly
	// but carried no Netlogon attribute value.
	NoSuchAttribute = &Kind{"no such attribute"}
)

// wrapped pairs a Kind with a formatted message and an optional root
// cause, exposed through Unwrap so errors.Is(err, dcerr.Communication)
// and errors.Cause(err) both work.
type wrapped struct {
	kind  *Kind
	msg   string
	cause error
}

func (w *wrapped) Error() string {
	if w.cause != nil {
		return w.msg + ": " + w.cause.Error()
	}
	return w.msg
}

func (w *wrapped) Unwrap() error { return w.kind }

func (w *wrapped) Cause() error {
	if w.cause != nil {
		return w.cause
	}
	return w.kind
}

// New creates an error of the given kind with no nested cause.
func New(kind *Kind, msg string) error {
	return &wrapped{kind: kind, msg: msg}
}

// Newf is New with fmt-style formatting.
func Newf(kind *Kind, format string, args ...interface{}) error {
	return &wrapped{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and msg to an existing cause, preserving it as
// the nested cause referenced in spec.md §7 ("the root cause is
// attached as a nested cause for diagnosis").
func Wrap(kind *Kind, cause error, msg string) error {
	if cause == nil {
		return New(kind, msg)
	}
	return &wrapped{kind: kind, msg: msg, cause: cause}
}

// Wrapf is Wrap with fmt-style formatting.
func Wrapf(kind *Kind, cause error, format string, args ...interface{}) error {
	return Wrap(kind, cause, fmt.Sprintf(format, args...))
}

// Is reports whether err (or any error it wraps) is of the given
// kind.
func Is(err error, kind *Kind) bool {
	return errors.Is(err, kind)
}

// Cause follows the chain of attached causes and returns the innermost
// one, or err itself if none was attached.
func Cause(err error) error {
	if w, ok := err.(*wrapped); ok {
		if w.cause == nil {
			return w
		}
		return Cause(w.cause)
	}
	return errors.Cause(err)
}
