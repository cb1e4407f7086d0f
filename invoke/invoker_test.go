package invoke

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInvokerRecordsSuccessfulProcessor(t *testing.T) {
	root := t.TempDir()
	stepDir := filepath.Join(root, "0")
	if err := os.MkdirAll(stepDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	l, err := OpenLedger(filepath.Join(root, "ledger.db"), 0)
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	defer l.Close()

	inv := &Invoker{ProcessorPath: "/bin/true", OutputRoot: root, Ledger: l}
	if err := inv.Invoke(context.Background(), 0, time.Now(), time.Now(), []string{"a.bin"}, nil); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	rec, ok, err := l.Get(0)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if rec.ProcessorError != "" {
		t.Fatalf("expected no processor error, got %q", rec.ProcessorError)
	}
}

func TestInvokerRecordsFailedProcessorWithoutReturningError(t *testing.T) {
	root := t.TempDir()
	stepDir := filepath.Join(root, "0")
	if err := os.MkdirAll(stepDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	l, err := OpenLedger(filepath.Join(root, "ledger.db"), 0)
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	defer l.Close()

	inv := &Invoker{ProcessorPath: "/bin/false", OutputRoot: root, Ledger: l}
	if err := inv.Invoke(context.Background(), 0, time.Now(), time.Now(), nil, nil); err != nil {
		t.Fatalf("Invoke must not surface processor failure as an error: %v", err)
	}

	rec, ok, err := l.Get(0)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if rec.ProcessorError == "" {
		t.Fatalf("expected processor error to be recorded in ledger")
	}
}
