package invoke

import (
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/feras-hamam/adastream/xerr"
	"github.com/feras-hamam/adastream/xlog"
)

// Invoker runs the external processor for each step released by the
// step barrier, times it, archives the output directory on success, and
// persists everything to the ledger (spec §4.8).
type Invoker struct {
	ProcessorPath string // executable invoked as: <path> <step> <output_dir>
	OutputRoot    string
	Ledger        *Ledger
	Archiver      Archiver // nil disables archival
}

// Invoke runs one released step. It never returns an error for a failed
// processor or failed archival — both are logged and recorded in the
// ledger, matching spec §4.8 "failure... is logged and does not stop the
// pipeline". It only returns an error for a ledger write failure, which
// is itself non-fatal to the caller's loop but surfaced for logging.
func (inv *Invoker) Invoke(ctx context.Context, step int, reducedDoneAt, augDoneAt time.Time, reducedFiles, augFiles []string) error {
	stepDir := filepath.Join(inv.OutputRoot, strconv.Itoa(step))

	rec := StepRecord{
		Step:          step,
		ReducedDoneAt: reducedDoneAt,
		AugDoneAt:     augDoneAt,
		ReducedFiles:  reducedFiles,
		AugFiles:      augFiles,
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, inv.ProcessorPath, strconv.Itoa(step), stepDir)
	out, err := cmd.CombinedOutput()
	rec.ProcessorDuration = time.Since(start)
	if err != nil {
		rec.ProcessorError = err.Error()
		xlog.Warningf("invoke: processor failed for step %d: %v (output: %s)", step, err, out)
	} else {
		xlog.Infof("invoke: step %d processed in %s", step, rec.ProcessorDuration)

		if inv.Archiver != nil {
			archiveRec, aerr := inv.Archiver.Archive(ctx, step, stepDir)
			if aerr != nil {
				xlog.Warningf("invoke: %v", xerr.Wrap(xerr.KindArchiveFailure, aerr, "archive step %d", step))
			} else {
				rec.Archive = &archiveRec
				xlog.Infof("invoke: step %d archived to %s/%s (%d -> %d bytes)",
					step, archiveRec.Backend, archiveRec.RemoteKey, archiveRec.Bytes, archiveRec.CompressedBytes)
			}
		}
	}

	if err := inv.Ledger.Put(rec); err != nil {
		return err
	}
	return nil
}
