package predict

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/feras-hamam/adastream/telemetry"
)

func writeOracleFile(t *testing.T, rec oracleRecord) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "congestion.json")
	buf, err := oracleJSON.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestOracleFilePredictorHappyPath(t *testing.T) {
	path := writeOracleFile(t, oracleRecord{
		FileSizes:     []int64{1024, 2048},
		LinkBandwidth: 200,
		Congestion:    10,
		RateMbps:      180,
	})
	hub := telemetry.NewHub(5, 10)
	p := OracleFilePredictor{Path: path}
	if err := p.Predict(hub, 1, 2, 200); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got := hub.Threshold(1); got < 80 {
		t.Fatalf("expected a high threshold for near-full-bandwidth rate, got %d", got)
	}
}

func TestOracleFilePredictorRejectsMissingFile(t *testing.T) {
	hub := telemetry.NewHub(5, 10)
	p := OracleFilePredictor{Path: filepath.Join(t.TempDir(), "missing.json")}
	if err := p.Predict(hub, 0, 1, 200); err == nil {
		t.Fatalf("expected error for missing oracle file")
	}
}

func TestOracleFilePredictorRejectsNonPositiveRate(t *testing.T) {
	path := writeOracleFile(t, oracleRecord{RateMbps: 0})
	hub := telemetry.NewHub(5, 10)
	p := OracleFilePredictor{Path: path}
	if err := p.Predict(hub, 0, 1, 200); err == nil {
		t.Fatalf("expected error for non-positive rate_mbps")
	}
}

func TestOracleFilePredictorRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	hub := telemetry.NewHub(5, 10)
	p := OracleFilePredictor{Path: path}
	if err := p.Predict(hub, 0, 1, 200); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}
