// Package errs defines the error taxonomy shared by every component of the
// auth service, and the mapping from an internal error to the wire-level
// reply the administrative API sends back to a peer.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the condition that produced it. Every error
// that crosses a component boundary in this service carries one of these.
type Kind int

const (
	Unknown Kind = iota
	CertNameCollision
	Forbidden
	InvalidArg
	InvalidArgsCount
	InvalidCert
	InvalidCertFeed
	InvalidCertMeta
	InvalidCertPath
	InvalidEndpoint
	InvalidZapRequest
	ZapVersion
	MissingConf
	Io
	PollerTimeout
	ZmqEncode
)

func (k Kind) String() string {
	switch k {
	case CertNameCollision:
		return "CertNameCollision"
	case Forbidden:
		return "Forbidden"
	case InvalidArg:
		return "InvalidArg"
	case InvalidArgsCount:
		return "InvalidArgsCount"
	case InvalidCert:
		return "InvalidCert"
	case InvalidCertFeed:
		return "InvalidCertFeed"
	case InvalidCertMeta:
		return "InvalidCertMeta"
	case InvalidCertPath:
		return "InvalidCertPath"
	case InvalidEndpoint:
		return "InvalidEndpoint"
	case InvalidZapRequest:
		return "InvalidZapRequest"
	case ZapVersion:
		return "ZapVersion"
	case MissingConf:
		return "MissingConf"
	case Io:
		return "Io"
	case PollerTimeout:
		return "PollerTimeout"
	case ZmqEncode:
		return "ZmqEncode"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every component in this
// service. It always carries a Kind so callers can branch on the taxonomy
// without string matching, keyed to this domain's own error kinds instead
// of HTTP status buckets.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// KindOf extracts the Kind of err, or Unknown if err is not (or does not
// wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Description returns the human-readable text sent back to a peer on the
// wire as the Err payload. It never leaks a wrapped cause's internals
// beyond its message; an Err reply carries only a description frame.
func Description(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
