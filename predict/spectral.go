// Package predict implements the bandwidth predictor (C3): two
// interchangeable strategies (spectral, oracle_file) that turn recent
// augmentation telemetry into a progress-threshold window, plus the
// cadence scheduler (C15) and host bandwidth sanity probe (C16) that
// drive it.
package predict

import (
	"math"

	"github.com/feras-hamam/adastream/telemetry"
	"github.com/feras-hamam/adastream/xerr"
)

// Predictor derives a fresh progress-threshold window from the
// augmentation telemetry ring and writes it into hub, per spec §4.3.
type Predictor interface {
	Predict(hub *telemetry.Hub, stepAug, lookahead int, linkBandwidthMbps float64) error
}

// MinSamples is the minimum number of valid rate observations required
// before the spectral predictor attempts a cycle (spec §4.3 step 3).
const MinSamples = 8

// SpectralPredictor implements the DFT-based strategy from spec §4.3
// steps 1-8. It depends on no FFT/numeric library: the spec explicitly
// treats "any language-specific numeric library used for spectral
// prediction" as an external collaborator out of the core's scope, so a
// direct O(N^2) discrete Fourier transform computed with stdlib math is
// the correct amount of machinery here, not a gap to fill with a
// dependency.
type SpectralPredictor struct{}

func (SpectralPredictor) Predict(hub *telemetry.Hub, stepAug, lookahead int, linkBandwidthMbps float64) error {
	samples := hub.DrainAugSamples()

	rates := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.Elapsed > 0 {
			rates = append(rates, float64(s.Bytes)/s.Elapsed) // bytes/s
		}
	}
	if len(rates) < MinSamples {
		return xerr.New(xerr.KindPredictorUnavailable, "only %d valid samples (need %d)", len(rates), MinSamples)
	}

	rate, ok := spectralRate(rates)
	if !ok {
		// No dominant frequency stood out; fall back to the plain mean
		// rather than abandoning the cycle outright.
		rate = mean(rates)
	}

	throughputMbps := rate * 8 / 1e6
	applyThreshold(hub, stepAug, lookahead, throughputMbps, linkBandwidthMbps)
	return nil
}

// spectralRate implements spec §4.3 steps 4-5: DFT magnitudes, dominant
// frequency selection, per-index windowed mean, averaged into r̂.
func spectralRate(rates []float64) (float64, bool) {
	n := len(rates)
	mags := dftMagnitudes(rates)

	half := n / 2
	if half < 1 {
		return 0, false
	}
	pos := mags[1 : half+1]
	mu := mean(pos)
	sd := stddev(pos, mu)
	cutoff := mu + 1.5*sd
	// Rounding noise on a constant series is not a dominant frequency:
	// require a magnitude that is non-negligible next to the DC term.
	if floor := 1e-9 * mags[0]; cutoff < floor {
		cutoff = floor
	}

	var (
		sum   float64
		count int
	)
	for k := 1; k <= half; k++ {
		if mags[k] <= cutoff {
			continue
		}
		period := float64(n) / float64(k)
		halfWin := period / 2
		lo := int(math.Floor(float64(k) - halfWin))
		hi := int(math.Ceil(float64(k) + halfWin))
		if lo < 0 {
			lo = 0
		}
		if hi >= n {
			hi = n - 1
		}
		if hi < lo {
			continue
		}
		sum += mean(rates[lo : hi+1])
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// dftMagnitudes computes |X_k| for k in [0,N) of the real input series x,
// via the direct O(N^2) definition of the discrete Fourier transform.
func dftMagnitudes(x []float64) []float64 {
	n := len(x)
	mags := make([]float64, n)
	for k := 0; k < n; k++ {
		var re, im float64
		for t := 0; t < n; t++ {
			theta := -2 * math.Pi * float64(k) * float64(t) / float64(n)
			re += x[t] * math.Cos(theta)
			im += x[t] * math.Sin(theta)
		}
		mags[k] = math.Hypot(re, im)
	}
	return mags
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, v := range xs {
		s += v
	}
	return s / float64(len(xs))
}

func stddev(xs []float64, mu float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, v := range xs {
		d := v - mu
		s += d * d
	}
	return math.Sqrt(s / float64(len(xs)))
}

// applyThreshold implements spec §4.3 steps 6-8, shared by every
// predictor strategy once it has produced a throughput estimate in Mbps.
func applyThreshold(hub *telemetry.Hub, stepAug, lookahead int, throughputMbps, linkBandwidthMbps float64) {
	congestion := (1 - throughputMbps/linkBandwidthMbps) * 100
	if congestion < 0 {
		congestion = 0
	}
	if congestion > 100 {
		congestion = 100
	}
	hub.SetLastCongestionPct(congestion)

	var t float64
	if congestion <= 20 {
		t = 100
	} else {
		t = 100 - (congestion - 20)
	}
	hub.WriteThresholdWindow(stepAug, lookahead, int(math.Round(t)))
}
