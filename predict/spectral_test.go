package predict

import (
	"math"
	"testing"

	"github.com/feras-hamam/adastream/telemetry"
)

func TestSpectralRateRecoversPeriodicSignal(t *testing.T) {
	const n = 32
	rates := make([]float64, n)
	for i := range rates {
		// Strong period-8 oscillation around a 100 MB/s baseline.
		rates[i] = 1e8 + 2e7*math.Sin(2*math.Pi*float64(i)/8)
	}
	r, ok := spectralRate(rates)
	if !ok {
		t.Fatalf("expected a dominant frequency to be found")
	}
	if r < 5e7 || r > 1.5e8 {
		t.Fatalf("recovered rate %v far from expected baseline ~1e8", r)
	}
}

func TestSpectralRateFallsBackOnFlatSignal(t *testing.T) {
	rates := make([]float64, 16)
	for i := range rates {
		rates[i] = 42 // DC only, no AC component above cutoff
	}
	if _, ok := spectralRate(rates); ok {
		t.Fatalf("flat signal should have no dominant frequency above cutoff")
	}
}

func TestSpectralPredictorRequiresMinSamples(t *testing.T) {
	hub := telemetry.NewHub(10, 100)
	for i := 0; i < MinSamples-1; i++ {
		hub.PushAugSample(telemetry.Sample{Elapsed: 1, Bytes: 1000})
	}
	var p SpectralPredictor
	if err := p.Predict(hub, 0, 2, 200); err == nil {
		t.Fatalf("expected error with insufficient samples")
	}
}

func TestSpectralPredictorWritesThresholdWindow(t *testing.T) {
	hub := telemetry.NewHub(10, 100)
	for i := 0; i < MinSamples+4; i++ {
		hub.PushAugSample(telemetry.Sample{Elapsed: 1, Bytes: 25_000_000}) // 200Mbps ~ full link
	}
	var p SpectralPredictor
	if err := p.Predict(hub, 2, 3, 200); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	// Link saturated => low congestion => threshold should stay high.
	for s := 2; s < 5; s++ {
		if got := hub.Threshold(s); got < 50 {
			t.Fatalf("step %d: threshold %d too low for near-full-bandwidth input", s, got)
		}
	}
	if hub.Threshold(0) != 100 {
		t.Fatalf("step outside the window must be untouched")
	}
}

func TestApplyThresholdMapsCongestionToWindow(t *testing.T) {
	hub := telemetry.NewHub(5, 10)
	// throughput is 0 => 100% congestion => threshold 100-(100-20) = 20.
	applyThreshold(hub, 0, 2, 0, 200)
	if hub.Threshold(0) != 20 || hub.Threshold(1) != 20 {
		t.Fatalf("full congestion should map to threshold 20")
	}
	if hub.LastCongestionPct() != 100 {
		t.Fatalf("expected recorded congestion 100, got %v", hub.LastCongestionPct())
	}

	hub2 := telemetry.NewHub(5, 10)
	// throughput == link bandwidth => 0% congestion => threshold 100.
	applyThreshold(hub2, 0, 2, 200, 200)
	if hub2.Threshold(0) != 100 {
		t.Fatalf("zero congestion should leave threshold at 100")
	}
	if hub2.LastCongestionPct() != 0 {
		t.Fatalf("expected recorded congestion 0, got %v", hub2.LastCongestionPct())
	}
}
