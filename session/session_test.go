package session

import (
	"testing"

	"github.com/feras-hamam/adastream/cfg"
)

func TestNewSessionIDProducesNonEmptyID(t *testing.T) {
	id, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}
	if id == "" {
		t.Fatalf("expected non-empty session id")
	}
}

func TestBuildPredictorSpectral(t *testing.T) {
	c := cfg.Default()
	c.PredictorMode = cfg.PredictorSpectral
	p, err := buildPredictor(c)
	if err != nil {
		t.Fatalf("buildPredictor: %v", err)
	}
	if p == nil {
		t.Fatalf("expected non-nil predictor")
	}
}

func TestBuildPredictorOracleRequiresPath(t *testing.T) {
	c := cfg.Default()
	c.PredictorMode = cfg.PredictorOracle
	c.OracleFilePath = ""
	if _, err := buildPredictor(c); err == nil {
		t.Fatalf("expected error when oracle_file_path is empty")
	}
}

func TestBuildPredictorRejectsUnknownMode(t *testing.T) {
	c := cfg.Default()
	c.PredictorMode = cfg.PredictorMode("bogus")
	if _, err := buildPredictor(c); err == nil {
		t.Fatalf("expected error for unknown predictor mode")
	}
}
