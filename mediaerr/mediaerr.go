// Package mediaerr defines the error taxonomy shared by the oggdemux and
// vorbis packages: a small set of Kinds that callers can branch on,
// wrapped with github.com/pkg/errors so the originating cause survives
// across package boundaries.
package mediaerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error so callers can decide whether it is
// recoverable without string-matching messages.
type Kind int

const (
	// Decode marks a malformed bitstream field inside an otherwise
	// well-framed packet or setup header. Recoverable per packet.
	Decode Kind = iota
	// IO marks a failure of the underlying byte source. Not recoverable.
	IO
	// EndOfStream marks a clean end of input, or a codeword cut off at
	// a packet tail. Recoverable where the caller's rule says so.
	EndOfStream
	// CrcMismatch marks a page whose CRC-32 did not match. The page
	// reader returns it after seeking past the bad sync point, and
	// OggReader retries on it, so it is only ever seen by a caller that
	// reads pages directly.
	CrcMismatch
	// ResetRequired marks the start of a new physical (chained) stream.
	// The caller must rebuild its decoder.
	ResetRequired
	// UnsupportedFeature marks a well-formed but unimplemented feature:
	// floor 0, a mapping type other than 0, or an unmapped channel count
	// when the caller requires a channel mapping.
	UnsupportedFeature
	// Seek marks a failed seek; see SeekKind for the specific reason.
	Seek
)

func (k Kind) String() string {
	switch k {
	case Decode:
		return "decode error"
	case IO:
		return "io error"
	case EndOfStream:
		return "end of stream"
	case CrcMismatch:
		return "crc mismatch"
	case ResetRequired:
		return "reset required"
	case UnsupportedFeature:
		return "unsupported feature"
	case Seek:
		return "seek error"
	default:
		return "unknown error"
	}
}

// SeekKind refines a Seek-kind Error.
type SeekKind int

const (
	// Unseekable means the underlying byte source cannot seek at all.
	Unseekable SeekKind = iota
	// ForwardOnly means the target position lies behind the current
	// read position on a source that cannot seek backward.
	ForwardOnly
	// OutOfRange means the requested time is before the start or past
	// the end of the stream.
	OutOfRange
	// InvalidTrack means the requested track serial does not exist in
	// this physical stream.
	InvalidTrack
)

func (k SeekKind) String() string {
	switch k {
	case Unseekable:
		return "unseekable"
	case ForwardOnly:
		return "forward only"
	case OutOfRange:
		return "out of range"
	case InvalidTrack:
		return "invalid track"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned across package boundaries in
// this module.
type Error struct {
	Kind     Kind
	SeekKind SeekKind // only meaningful when Kind == Seek
	msg      string
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

// New builds a bare Error of the given Kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given Kind that carries cause as its
// underlying error, annotated via github.com/pkg/errors so a stack trace
// is attached at the wrap site.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:  kind,
		msg:   fmt.Sprintf(format, args...),
		cause: errors.Wrap(cause, fmt.Sprintf(format, args...)),
	}
}

// NewSeek builds a Seek-kind Error with the given SeekKind.
func NewSeek(seekKind SeekKind, format string, args ...interface{}) *Error {
	return &Error{Kind: Seek, SeekKind: seekKind, msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a mediaerr.Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsSeek reports whether err is a Seek-kind mediaerr.Error with the given
// SeekKind.
func IsSeek(err error, seekKind SeekKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == Seek && e.SeekKind == seekKind
	}
	return false
}
