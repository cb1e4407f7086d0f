// Package receiver implements the per-stream receiver loop (C6), the
// mirror image of sender: accept filenames, write chunks to per-step
// directories under output_root, time each receive, and drive the
// step-alert handshake including the barrier notifications.
package receiver

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/karrick/godirwalk"

	"github.com/feras-hamam/adastream/stepbarrier"
	"github.com/feras-hamam/adastream/wire"
	"github.com/feras-hamam/adastream/xerr"
	"github.com/feras-hamam/adastream/xlog"
)

// Receiver drives one stream's full session on the receiving side.
type Receiver struct {
	Stream     stepbarrier.Stream
	Chan       wire.Channel
	OutputRoot string
	Barrier    *stepbarrier.Barrier
}

// RunStep receives one step: files until the step-alert code arrives,
// then reports completion to the barrier. Returns isLastStep (alert was
// EndSession) so the caller can stop its loop.
func (r *Receiver) RunStep(step int) (isLastStep bool, err error) {
	stepDir := filepath.Join(r.OutputRoot, strconv.Itoa(step))
	if err := ensureDir(stepDir); err != nil {
		return false, err
	}

	for {
		nameFrame, err := r.Chan.Recv()
		if err != nil {
			return false, xerr.Wrap(xerr.KindTransportFault, err, "recv filename")
		}
		name, err := wire.DecodeFilename(nameFrame)
		if err != nil {
			return false, err
		}
		r.Barrier.NoteFilename(step, r.Stream, name)
		if err := r.receiveFile(stepDir, name); err != nil {
			return false, err
		}

		alert, err := r.recvAlert()
		if err != nil {
			return false, err
		}
		switch alert {
		case wire.MoreFilesSameStep:
			continue // no ack; another file is coming within this step
		case wire.NextStep:
			if err := r.ack(); err != nil {
				return false, err
			}
			r.Barrier.MarkDone(step, r.Stream)
			return false, nil
		case wire.EndSession:
			if err := r.ack(); err != nil {
				return false, err
			}
			r.Barrier.MarkDone(step, r.Stream)
			return true, nil
		default:
			return false, xerr.New(xerr.KindProtocolViolation, "unexpected alert %q", alert)
		}
	}
}

// receiveFile writes chunks for one file to stepDir/name until the EOF
// sentinel, replying with per-chunk wall-clock timing.
func (r *Receiver) receiveFile(stepDir, name string) error {
	path := filepath.Join(stepDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return xerr.Wrap(xerr.KindFileIO, err, "open %s for append", path)
	}
	defer f.Close()

	var total int64
	for {
		start := time.Now()
		msg, err := r.Chan.Recv()
		elapsed := time.Since(start).Seconds()
		if err != nil {
			return xerr.Wrap(xerr.KindTransportFault, err, "recv chunk for %s", path)
		}

		frame := wire.DecodeBodyFrame(msg)
		if err := r.Chan.Send(wire.EncodeFloat64(elapsed)); err != nil {
			return xerr.Wrap(xerr.KindTransportFault, err, "send timing reply for %s", path)
		}
		if frame.Kind == wire.KindFileEnd {
			xlog.Debugf("receiver: %s complete, %d bytes", path, total)
			return nil
		}
		n, err := f.Write(frame.Data)
		if err != nil {
			return xerr.Wrap(xerr.KindFileIO, err, "write %s", path)
		}
		total += int64(n)
	}
}

func (r *Receiver) recvAlert() (wire.AlertCode, error) {
	msg, err := r.Chan.Recv()
	if err != nil {
		return 0, xerr.Wrap(xerr.KindTransportFault, err, "recv alert")
	}
	return wire.DecodeAlert(msg)
}

func (r *Receiver) ack() error {
	if err := r.Chan.Send([]byte("ack")); err != nil {
		return xerr.Wrap(xerr.KindTransportFault, err, "send ack")
	}
	return nil
}

// ensureDir creates dir (and parents) if missing, walking any existing
// contents first via godirwalk so a pre-existing non-empty step
// directory from a prior crashed run is logged rather than silently
// reused.
func ensureDir(dir string) error {
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return xerr.New(xerr.KindFileIO, "%s exists and is not a directory", dir)
		}
		count := 0
		_ = godirwalk.Walk(dir, &godirwalk.Options{
			Callback: func(_ string, _ *godirwalk.Dirent) error {
				count++
				return nil
			},
			Unsorted: true,
		})
		if count > 1 {
			xlog.Warningf("receiver: reusing pre-existing step directory %s (%d entries)", dir, count-1)
		}
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xerr.Wrap(xerr.KindFileIO, err, "create step directory %s", dir)
	}
	return nil
}
