// Package invoke implements the downstream invoker (C8): running the
// external per-step processor, archiving its output directory to a
// pluggable cloud backend, and recording both in a buntdb ledger.
package invoke

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pierrec/lz4/v3"

	"github.com/feras-hamam/adastream/cfg"
	"github.com/feras-hamam/adastream/xerr"
)

// ArchiveRecord is the persisted proof that a step's output directory
// was compressed and uploaded (spec §3 "Archive record" / §4.8).
type ArchiveRecord struct {
	Step             int           `json:"step"`
	Backend          string        `json:"backend"`
	RemoteKey        string        `json:"remote_key"`
	Bytes            int64         `json:"bytes"`
	CompressedBytes  int64         `json:"compressed_bytes"`
	Duration         time.Duration `json:"duration_ns"`
}

// Archiver uploads a single compressed blob for a step's output
// directory to wherever the backend puts it, returning the record of
// what it did. Grounded on the teacher pack's ais/backend multi-cloud
// provider interface, narrowed to the one operation this system needs.
type Archiver interface {
	Archive(ctx context.Context, step int, dir string) (ArchiveRecord, error)
	Backend() string
}

// NewArchiver builds the configured Archiver, or nil when archiving is
// disabled (spec §4.8 invariant 8: archive_backend=none makes no network
// calls beyond the QUIC session).
func NewArchiver(c *cfg.Config) (Archiver, error) {
	switch c.ArchiveBackend {
	case cfg.ArchiveNone, "":
		return nil, nil
	case cfg.ArchiveS3:
		return newS3Archiver(c.ArchiveBucket, c.ArchivePrefix)
	case cfg.ArchiveAzure:
		return newAzureArchiver(c.ArchiveBucket, c.ArchivePrefix)
	case cfg.ArchiveGCS:
		return newGCSArchiver(c.ArchiveBucket, c.ArchivePrefix)
	default:
		return nil, xerr.New(xerr.KindArchiveFailure, "unknown archive_backend %q", c.ArchiveBackend)
	}
}

// compressDir walks dir and lz4-compresses its concatenated file
// contents into a single in-memory blob. A tar-equivalent framing
// (name-length, name, body-length, body) precedes each file so the blob
// is self-describing without pulling in a tar dependency the pack never
// shows.
func compressDir(dir string) (raw, compressed *bytes.Buffer, rawSize int64, err error) {
	raw = &bytes.Buffer{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, 0, xerr.Wrap(xerr.KindArchiveFailure, err, "read step directory %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, nil, 0, xerr.Wrap(xerr.KindArchiveFailure, err, "read %s", e.Name())
		}
		fmt.Fprintf(raw, "%d:%s\n%d\n", len(e.Name()), e.Name(), len(body))
		raw.Write(body)
		rawSize += int64(len(body))
	}

	compressed = &bytes.Buffer{}
	w := lz4.NewWriter(compressed)
	if _, err := io.Copy(w, bytes.NewReader(raw.Bytes())); err != nil {
		return nil, nil, 0, xerr.Wrap(xerr.KindArchiveFailure, err, "lz4 compress step directory %s", dir)
	}
	if err := w.Close(); err != nil {
		return nil, nil, 0, xerr.Wrap(xerr.KindArchiveFailure, err, "close lz4 writer")
	}
	return raw, compressed, rawSize, nil
}

func remoteKey(prefix string, step int) string {
	if prefix == "" {
		prefix = "adastream"
	}
	return fmt.Sprintf("%s/step-%06d.lz4", prefix, step)
}
