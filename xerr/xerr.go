// Package xerr implements the session's error taxonomy: a closed set of
// kinds, each with a fixed severity, wrapped with call-site context via
// github.com/pkg/errors the way the teacher's cmn/cos package wraps low
// level errors before they cross a package boundary.
package xerr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind is a closed enum of error categories from the error handling design.
type Kind int

const (
	// KindTransportInit: cannot bind/connect. Fatal.
	KindTransportInit Kind = iota
	// KindTransportFault: send/recv failed mid-stream. Fatal for the stream.
	KindTransportFault
	// KindProtocolViolation: message outside the expected schema. Fatal.
	KindProtocolViolation
	// KindFileIO: source file missing or directory not creatable. Fatal for the file/stream.
	KindFileIO
	// KindPredictorUnavailable: non-fatal, threshold stays at last good value.
	KindPredictorUnavailable
	// KindProcessorFailure: non-fatal, logged, next step continues.
	KindProcessorFailure
	// KindArchiveFailure: non-fatal, logged; archival is additive to processing.
	KindArchiveFailure
	// KindShutdown: cooperative termination via END_SESSION; not an error.
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindTransportInit:
		return "TransportInit"
	case KindTransportFault:
		return "TransportFault"
	case KindProtocolViolation:
		return "ProtocolViolation"
	case KindFileIO:
		return "FileIO"
	case KindPredictorUnavailable:
		return "PredictorUnavailable"
	case KindProcessorFailure:
		return "ProcessorFailure"
	case KindArchiveFailure:
		return "ArchiveFailure"
	case KindShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Fatal reports whether this kind terminates the affected stream/session.
func (k Kind) Fatal() bool {
	switch k {
	case KindPredictorUnavailable, KindProcessorFailure, KindArchiveFailure, KindShutdown:
		return false
	default:
		return true
	}
}

// ExitCode maps a kind to the process exit code used by cmd/adasend and
// cmd/adarecv. Shutdown and non-fatal kinds map to 0; when a fatal error
// co-occurs, Worst picks the fatal one and its code is used instead.
func (k Kind) ExitCode() int {
	if !k.Fatal() {
		return 0
	}
	switch k {
	case KindTransportInit:
		return 10
	case KindTransportFault:
		return 11
	case KindProtocolViolation:
		return 12
	case KindFileIO:
		return 13
	default:
		return 1
	}
}

// Error is a typed, wrapped error carrying a Kind.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// New creates a Kind-tagged error with a formatted message.
func New(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind and context message to an existing error, keeping
// the original as the unwrap target (so errors.Is/As still reach it).
func Wrap(k Kind, err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, msg: fmt.Sprintf(format, args...), err: pkgerrors.WithStack(err)}
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, k Kind) bool {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.Kind == k
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to KindTransportFault for
// untyped errors surfacing from worker goroutines (conservative: unknown
// failures are treated as fatal stream faults rather than silently benign).
func KindOf(err error) Kind {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.Kind
	}
	return KindTransportFault
}

// Worst picks the most severe of two errors for join-style propagation:
// a fatal kind always outranks a non-fatal one; among two fatals or two
// non-fatals, the first (earlier-observed) wins.
func Worst(a, b error) error {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	ka, kb := KindOf(a), KindOf(b)
	if ka.Fatal() && !kb.Fatal() {
		return a
	}
	if kb.Fatal() && !ka.Fatal() {
		return b
	}
	return a
}
