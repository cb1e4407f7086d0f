package xerr

import "testing"

func TestWorstPrefersFatalOverNonFatal(t *testing.T) {
	fatal := New(KindTransportFault, "stream broke")
	nonFatal := New(KindProcessorFailure, "processor exited 1")

	if got := Worst(nonFatal, fatal); got != fatal {
		t.Fatalf("expected fatal error to win regardless of argument order, got %v", got)
	}
	if got := Worst(fatal, nonFatal); got != fatal {
		t.Fatalf("expected fatal error to win regardless of argument order, got %v", got)
	}
}

func TestWorstKeepsFirstAmongSameSeverity(t *testing.T) {
	a := New(KindTransportFault, "a")
	b := New(KindProtocolViolation, "b")

	if got := Worst(a, b); got != a {
		t.Fatalf("expected first fatal error to win, got %v", got)
	}
}

func TestWorstHandlesNils(t *testing.T) {
	err := New(KindFileIO, "missing")
	if got := Worst(nil, err); got != err {
		t.Fatalf("expected non-nil error, got %v", got)
	}
	if got := Worst(err, nil); got != err {
		t.Fatalf("expected non-nil error, got %v", got)
	}
	if got := Worst(nil, nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
