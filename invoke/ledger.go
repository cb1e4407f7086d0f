package invoke

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/pgzip"
	"github.com/tidwall/buntdb"

	"github.com/feras-hamam/adastream/xerr"
)

var ledgerJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// StepRecord is one ledger entry: everything known about a step once
// the barrier has released it and the processor has run (spec §3
// "queryable by step range").
type StepRecord struct {
	Step              int            `json:"step"`
	ReducedDoneAt     time.Time      `json:"reduced_done_at"`
	AugDoneAt         time.Time      `json:"aug_done_at"`
	ProcessorDuration time.Duration  `json:"processor_duration_ns"`
	ProcessorError    string         `json:"processor_error,omitempty"`
	Archive           *ArchiveRecord `json:"archive,omitempty"`

	// ReducedFiles/AugFiles are the per-stream file sets recorded for
	// this step by the barrier (spec §3 "reduced_files"/
	// "augmentation_files").
	ReducedFiles []string `json:"reduced_files,omitempty"`
	AugFiles     []string `json:"augmentation_files,omitempty"`
}

// Ledger is the durable per-step record store, backed by buntdb and
// keyed "step:%09d" so range scans (buntdb.AscendRange) return steps in
// order (spec §4.8 "queryable by step range").
type Ledger struct {
	db *buntdb.DB

	mu           sync.Mutex
	writesSinceRotate int
	rotateEvery  int
	snapshotPath string
}

func key(step int) string { return fmt.Sprintf("step:%09d", step) }

// OpenLedger opens (creating if absent) the buntdb file at path.
// rotateEvery controls how many writes elapse between compressed
// snapshot exports (0 disables rotation).
func OpenLedger(path string, rotateEvery int) (*Ledger, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindFileIO, err, "open ledger %s", path)
	}
	return &Ledger{db: db, rotateEvery: rotateEvery, snapshotPath: path + ".snapshot.gz"}, nil
}

func (l *Ledger) Close() error {
	if err := l.db.Close(); err != nil {
		return xerr.Wrap(xerr.KindFileIO, err, "close ledger")
	}
	return nil
}

// Put writes rec under its step key and, every rotateEvery writes,
// exports and pgzip-compresses a full snapshot (spec §4.8 / C17).
func (l *Ledger) Put(rec StepRecord) error {
	buf, err := ledgerJSON.Marshal(rec)
	if err != nil {
		return xerr.Wrap(xerr.KindFileIO, err, "marshal ledger record for step %d", rec.Step)
	}
	err = l.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key(rec.Step), string(buf), nil)
		return err
	})
	if err != nil {
		return xerr.Wrap(xerr.KindFileIO, err, "write ledger record for step %d", rec.Step)
	}

	if l.rotateEvery <= 0 {
		return nil
	}
	l.mu.Lock()
	l.writesSinceRotate++
	due := l.writesSinceRotate >= l.rotateEvery
	if due {
		l.writesSinceRotate = 0
	}
	l.mu.Unlock()
	if due {
		if err := l.rotateSnapshot(); err != nil {
			// Rotation is best-effort housekeeping, not a ledger-write
			// failure: log-equivalent via the returned error is left to
			// the caller, but it must not block future Put calls.
			return xerr.Wrap(xerr.KindArchiveFailure, err, "rotate ledger snapshot")
		}
	}
	return nil
}

// Get returns the record for step, and whether it existed.
func (l *Ledger) Get(step int) (StepRecord, bool, error) {
	var rec StepRecord
	var raw string
	err := l.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key(step))
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err == buntdb.ErrNotFound {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, xerr.Wrap(xerr.KindFileIO, err, "read ledger record for step %d", step)
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return rec, false, xerr.Wrap(xerr.KindFileIO, err, "decode ledger record for step %d", step)
	}
	return rec, true, nil
}

// rotateSnapshot exports every current key/value pair and writes it,
// pgzip-compressed, to snapshotPath — mirroring the teacher pack's
// n-backup practice of compressing durable logs for cold storage.
func (l *Ledger) rotateSnapshot() error {
	f, err := os.Create(l.snapshotPath)
	if err != nil {
		return xerr.Wrap(xerr.KindFileIO, err, "create snapshot file %s", l.snapshotPath)
	}
	defer f.Close()

	gw, err := pgzip.NewWriterLevel(f, pgzip.BestSpeed)
	if err != nil {
		return xerr.Wrap(xerr.KindFileIO, err, "create pgzip writer")
	}
	defer gw.Close()

	err = l.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(k, v string) bool {
			fmt.Fprintf(gw, "%s\t%s\n", k, v)
			return true
		})
	})
	if err != nil {
		return xerr.Wrap(xerr.KindFileIO, err, "export ledger snapshot")
	}
	return nil
}
