package telemetry

import "testing"

func TestRingDrainFIFOOrder(t *testing.T) {
	h := NewHub(4, 3)
	h.PushAugSample(Sample{Elapsed: 1, Bytes: 10})
	h.PushAugSample(Sample{Elapsed: 2, Bytes: 20})
	h.PushAugSample(Sample{Elapsed: 3, Bytes: 30})

	got := h.DrainAugSamples()
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	for i, want := range []int{10, 20, 30} {
		if got[i].Bytes != want {
			t.Fatalf("sample %d: got %d want %d", i, got[i].Bytes, want)
		}
	}

	if more := h.DrainAugSamples(); more != nil {
		t.Fatalf("expected nil after full drain, got %v", more)
	}
}

func TestRingOverwritesOldestWhenFull(t *testing.T) {
	h := NewHub(1, 2)
	h.PushAugSample(Sample{Bytes: 1})
	h.PushAugSample(Sample{Bytes: 2})
	h.PushAugSample(Sample{Bytes: 3}) // overwrites the first sample

	got := h.DrainAugSamples()
	if len(got) != 2 || got[0].Bytes != 2 || got[1].Bytes != 3 {
		t.Fatalf("unexpected ring contents: %+v", got)
	}
}

func TestStepCountersAreIndependentAndMonotonic(t *testing.T) {
	h := NewHub(10, 10)
	if v := h.IncrAugStep(); v != 1 {
		t.Fatalf("first IncrAugStep: got %d want 1", v)
	}
	if v := h.IncrAugStep(); v != 2 {
		t.Fatalf("second IncrAugStep: got %d want 2", v)
	}
	if v := h.StepReduced(); v != 0 {
		t.Fatalf("reduced step should be untouched, got %d", v)
	}
	h.IncrReducedStep()
	if h.StepAug() != 2 || h.StepReduced() != 1 {
		t.Fatalf("counters interfered: aug=%d reduced=%d", h.StepAug(), h.StepReduced())
	}
}

func TestThresholdDefaultsTo100(t *testing.T) {
	h := NewHub(5, 10)
	for s := 0; s < 5; s++ {
		if got := h.Threshold(s); got != 100 {
			t.Fatalf("step %d: got %d want 100", s, got)
		}
	}
	if got := h.Threshold(99); got != 100 {
		t.Fatalf("out-of-range step should be permissive 100, got %d", got)
	}
}

func TestWriteThresholdWindowClampsAndBounds(t *testing.T) {
	h := NewHub(5, 10)
	h.WriteThresholdWindow(1, 2, 150) // clamps to 100
	if h.Threshold(1) != 100 || h.Threshold(2) != 100 {
		t.Fatalf("expected clamp to 100")
	}
	h.WriteThresholdWindow(3, 5, -10) // clamps to 1, and window overruns array
	if h.Threshold(3) != 1 || h.Threshold(4) != 1 {
		t.Fatalf("expected clamp to 1")
	}
	if h.Threshold(0) != 100 {
		t.Fatalf("step 0 should be untouched")
	}
}
