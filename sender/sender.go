// Package sender implements the per-stream sender loop (C4): for each
// step, push every file's bytes across a wire.Channel, apply the
// augmentation stream's progress-threshold truncation, and drive the
// step-alert handshake.
package sender

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/OneOfOne/xxhash"
	"golang.org/x/time/rate"

	"github.com/feras-hamam/adastream/metrics"
	"github.com/feras-hamam/adastream/telemetry"
	"github.com/feras-hamam/adastream/wire"
	"github.com/feras-hamam/adastream/xerr"
	"github.com/feras-hamam/adastream/xlog"
)

// Kind distinguishes the two stream roles; only Augmentation consults
// the progress threshold. Each kind pushes its timing samples into its
// own Hub ring; only the augmentation ring feeds the predictor.
type Kind int

const (
	Reduced Kind = iota
	Augmentation
)

// Sender drives one stream's full session: every step's files, in
// order, until the caller signals the last step.
//
// Round-robin interleaving across a step's files (spec §4.4) is not
// implemented: it requires the receiver to run framing variant (b)
// (all filenames up front, interleaved chunks disambiguated per file),
// which spec §4.6 explicitly treats as out of scope in favor of the
// simpler variant (a) this receiver implements. Sending interleaved
// chunks against a variant-(a) receiver would silently corrupt output,
// so this sender always drains one file to completion before starting
// the next.
type Sender struct {
	Kind      Kind
	Chan      wire.Channel
	ChunkSize int
	Hub       *telemetry.Hub    // nil for Reduced is fine; only read by Augmentation
	Metrics   *metrics.Registry // optional; nil disables metrics updates

	// Limiter optionally paces outbound chunks (config max_send_rate_mbps).
	Limiter *rate.Limiter
}

func (s *Sender) streamLabel() string {
	if s.Kind == Augmentation {
		return "augmentation"
	}
	return "reduced"
}

// fileDigest accumulates an xxhash64 checksum while sending, surfaced
// for callers that want to log/verify end-to-end integrity.
type fileDigest struct {
	h *xxhash.XXHash64
}

func newFileDigest() *fileDigest      { return &fileDigest{h: xxhash.New64()} }
func (d *fileDigest) write(b []byte)  { d.h.Write(b) }
func (d *fileDigest) sum() uint64     { return d.h.Sum64() }

// RunStep sends one step of this stream: every file in order, then the
// step-alert code. isLastStep selects between alert codes '0' and '2'
// per spec §4.4 step 7.
func (s *Sender) RunStep(step int, files []string, isLastStep bool) error {
	for i, path := range files {
		if err := s.sendFile(step, path); err != nil {
			return err
		}
		if i < len(files)-1 {
			if err := s.sendAlert(wire.MoreFilesSameStep, false); err != nil {
				return err
			}
		}
	}
	return s.sendAlert(alertFor(isLastStep), true)
}

func (s *Sender) sendFile(step int, path string) error {
	if err := s.Chan.Send(wire.EncodeFilename(filenameOf(path))); err != nil {
		return xerr.Wrap(xerr.KindTransportFault, err, "send filename %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return xerr.Wrap(xerr.KindFileIO, err, "open %s", path)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return xerr.Wrap(xerr.KindFileIO, err, "stat %s", path)
	}
	size := fi.Size()
	digest := newFileDigest()
	var sent int64

	for {
		eof, err := s.sendNextChunk(step, f, digest, &sent, size)
		if err != nil {
			return err
		}
		if eof {
			break
		}
		if s.Kind == Augmentation && size > 0 && sent < size {
			progress := int(100 * sent / size)
			if progress >= s.Hub.Threshold(step) {
				if err := s.sendEOFSentinel(); err != nil {
					return err
				}
				xlog.Infof("sender: truncated %s at %d%% (threshold %d), %d bytes, xxhash=%x", path, progress, s.Hub.Threshold(step), sent, digest.sum())
				return nil
			}
		}
	}
	xlog.Debugf("sender: %s complete, %d bytes, xxhash=%x", path, sent, digest.sum())
	return nil
}

// sendNextChunk reads and sends one CHUNK_SIZE chunk (or the final,
// possibly empty, EOF sentinel) from f, awaits the receiver's timing
// reply, and records telemetry for the augmentation stream. Returns
// eof=true once the EOF sentinel itself has been sent.
func (s *Sender) sendNextChunk(step int, f *os.File, digest *fileDigest, sent *int64, size int64) (eof bool, err error) {
	buf := make([]byte, s.ChunkSize)
	n, rerr := f.Read(buf)
	if n == 0 && rerr == io.EOF {
		if err := s.sendEOFSentinel(); err != nil {
			return false, err
		}
		return true, nil
	}
	if rerr != nil && rerr != io.EOF {
		return false, xerr.Wrap(xerr.KindFileIO, rerr, "read chunk")
	}
	if s.Limiter != nil {
		_ = s.Limiter.WaitN(context.Background(), n)
	}

	data := buf[:n]
	digest.write(data)
	*sent += int64(n)

	start := time.Now()
	if err := s.Chan.Send(data); err != nil {
		return false, xerr.Wrap(xerr.KindTransportFault, err, "send chunk")
	}
	if s.Metrics != nil {
		s.Metrics.BytesSent.WithLabelValues(s.streamLabel()).Add(float64(n))
	}
	elapsedWire, err := s.recvElapsed()
	if err != nil {
		return false, err
	}
	elapsed := elapsedWire
	if elapsed <= 0 {
		elapsed = time.Since(start).Seconds()
	}

	if s.Kind == Augmentation && s.Hub != nil {
		s.Hub.PushAugSample(telemetry.Sample{Elapsed: elapsed, Bytes: n})
	} else if s.Hub != nil {
		s.Hub.PushReducedSample(telemetry.Sample{Elapsed: elapsed, Bytes: n})
	}

	return false, nil
}

// sendEOFSentinel sends the zero-length EOF frame and awaits the
// receiver's timing reply, same as any other chunk (spec §4.6 step 2
// measures and replies to "each chunk", including the terminating
// zero-length one).
func (s *Sender) sendEOFSentinel() error {
	if err := s.Chan.Send(wire.EncodeFileEnd()); err != nil {
		return xerr.Wrap(xerr.KindTransportFault, err, "send EOF sentinel")
	}
	if _, err := s.recvElapsed(); err != nil {
		return err
	}
	return nil
}

// recvElapsed reads the receiver's float64-seconds timing reply.
func (s *Sender) recvElapsed() (float64, error) {
	b, err := s.Chan.Recv()
	if err != nil {
		return 0, xerr.Wrap(xerr.KindTransportFault, err, "recv timing reply")
	}
	return wire.DecodeFloat64(b)
}

func (s *Sender) sendAlert(code wire.AlertCode, awaitAck bool) error {
	if err := s.Chan.Send(wire.EncodeAlert(code)); err != nil {
		return xerr.Wrap(xerr.KindTransportFault, err, "send alert %s", code)
	}
	if !awaitAck {
		return nil
	}
	if _, err := s.Chan.Recv(); err != nil {
		return xerr.Wrap(xerr.KindTransportFault, err, "recv ack for alert %s", code)
	}
	return nil
}

func alertFor(isLastStep bool) wire.AlertCode {
	if isLastStep {
		return wire.EndSession
	}
	return wire.NextStep
}

func filenameOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
