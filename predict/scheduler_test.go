package predict

import "testing"

func TestShouldActGatesOnCadenceAndDedup(t *testing.T) {
	s := &Scheduler{cadence: 3, lastActedStep: -1}

	if s.shouldAct(1) {
		t.Fatalf("step 1 is not a multiple of cadence 3")
	}
	if !s.shouldAct(3) {
		t.Fatalf("step 3 should open the gate")
	}
	s.lastActedStep = 3
	if s.shouldAct(3) {
		t.Fatalf("step 3 already acted on, must not re-fire")
	}
	if !s.shouldAct(6) {
		t.Fatalf("step 6 is a fresh multiple of cadence 3")
	}
}

func TestShouldActDefaultCadenceOne(t *testing.T) {
	s := &Scheduler{cadence: 1, lastActedStep: -1}
	for step := 0; step < 4; step++ {
		if !s.shouldAct(step) {
			t.Fatalf("cadence 1 should fire on every step, failed at %d", step)
		}
		s.lastActedStep = step
	}
}
