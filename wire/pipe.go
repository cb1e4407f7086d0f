package wire

import (
	"errors"
)

// ErrPipeClosed is returned by Recv after the peer end of a Pipe is closed
// and all buffered messages have been drained.
var ErrPipeClosed = errors.New("wire: pipe closed")

// pipeChannel is an in-memory Channel backed by a buffered slice channel,
// preserving FIFO order including zero-length messages. Used by tests
// that exercise C4/C6/C7 without a real QUIC socket pair — the same role
// the teacher's stream_bundle_test.go fills with an in-process transport
// double.
type pipeChannel struct {
	out    chan []byte
	in     chan []byte
	closed chan struct{}
}

// NewPipe returns two Channels wired to each other: messages sent on a
// are received by b, and vice versa.
func NewPipe() (a, b Channel) {
	c1 := make(chan []byte, 256)
	c2 := make(chan []byte, 256)
	closed := make(chan struct{})
	pa := &pipeChannel{out: c1, in: c2, closed: closed}
	pb := &pipeChannel{out: c2, in: c1, closed: closed}
	return pa, pb
}

func (p *pipeChannel) Send(msg []byte) error {
	cp := make([]byte, len(msg))
	copy(cp, msg)
	select {
	case p.out <- cp:
		return nil
	case <-p.closed:
		return ErrPipeClosed
	}
}

func (p *pipeChannel) Recv() ([]byte, error) {
	select {
	case m := <-p.in:
		return m, nil
	case <-p.closed:
		select {
		case m := <-p.in:
			return m, nil
		default:
			return nil, ErrPipeClosed
		}
	}
}

func (p *pipeChannel) Close() error {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
	return nil
}
