// Package wire implements the paired point-to-point transport (C1) and
// the alert/sentinel codec (C9): framed messages over one QUIC stream
// per logical stream identity, plus the tagged Frame representation that
// keeps wire sentinels (alert ASCII digits, zero-length EOF) out of the
// rest of the codebase.
package wire

import (
	"fmt"

	"github.com/feras-hamam/adastream/xerr"
)

// AlertCode is the closed three-value step-alert enum from the wire
// protocol (spec §6, row 5).
type AlertCode byte

const (
	EndSession        AlertCode = '0'
	MoreFilesSameStep AlertCode = '1'
	NextStep          AlertCode = '2'
)

func (a AlertCode) Valid() bool {
	switch a {
	case EndSession, MoreFilesSameStep, NextStep:
		return true
	default:
		return false
	}
}

func (a AlertCode) String() string {
	switch a {
	case EndSession:
		return "END_SESSION"
	case MoreFilesSameStep:
		return "MORE_FILES_SAME_STEP"
	case NextStep:
		return "NEXT_STEP"
	default:
		return fmt.Sprintf("AlertCode(%q)", byte(a))
	}
}

// FrameKind discriminates the tagged Frame union.
type FrameKind int

const (
	KindData FrameKind = iota
	KindFileEnd
	KindAlert
)

// Frame is the internal, tagged representation of one message exchanged
// after a filename: either a chunk of file data, the file-end sentinel
// (a zero-length message), or a step-alert code. The codec below is the
// only place bytes cross into/out of this representation.
type Frame struct {
	Kind  FrameKind
	Data  []byte
	Alert AlertCode
}

// DecodeBodyFrame interprets a raw message body received while reading a
// file's chunk stream: empty means end-of-file, otherwise it's data.
func DecodeBodyFrame(b []byte) Frame {
	if len(b) == 0 {
		return Frame{Kind: KindFileEnd}
	}
	return Frame{Kind: KindData, Data: b}
}

// EncodeFileEnd returns the zero-length EOF sentinel payload.
func EncodeFileEnd() []byte { return []byte{} }

// EncodeAlert returns the one-byte ASCII wire payload for a step-alert code.
func EncodeAlert(a AlertCode) []byte { return []byte{byte(a)} }

// DecodeAlert parses a received alert message, rejecting anything outside
// {'0','1','2'} as a ProtocolViolation per spec §4.9/§7.
func DecodeAlert(b []byte) (AlertCode, error) {
	if len(b) != 1 {
		return 0, xerr.New(xerr.KindProtocolViolation, "alert frame must be exactly 1 byte, got %d", len(b))
	}
	a := AlertCode(b[0])
	if !a.Valid() {
		return 0, xerr.New(xerr.KindProtocolViolation, "alert byte %q outside {'0','1','2'}", b[0])
	}
	return a, nil
}

// EncodeFilename null-terminates a filename for the wire (spec §3: "opaque
// byte strings terminated by a zero byte").
func EncodeFilename(name string) []byte {
	b := make([]byte, len(name)+1)
	copy(b, name)
	b[len(name)] = 0
	return b
}

// DecodeFilename strips the trailing zero byte a filename message carries.
func DecodeFilename(b []byte) (string, error) {
	if len(b) == 0 || b[len(b)-1] != 0 {
		return "", xerr.New(xerr.KindProtocolViolation, "filename frame missing null terminator")
	}
	return string(b[:len(b)-1]), nil
}
