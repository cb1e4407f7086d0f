package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBytesSentCounterIncrementsPerStream(t *testing.T) {
	r := New()
	r.BytesSent.WithLabelValues("augmentation").Add(1024)
	r.BytesSent.WithLabelValues("reduced").Add(512)

	if got := testutil.ToFloat64(r.BytesSent.WithLabelValues("augmentation")); got != 1024 {
		t.Fatalf("augmentation bytes: got %v want 1024", got)
	}
	if got := testutil.ToFloat64(r.BytesSent.WithLabelValues("reduced")); got != 512 {
		t.Fatalf("reduced bytes: got %v want 512", got)
	}
}

func TestStepsCompletedCounter(t *testing.T) {
	r := New()
	r.StepsCompleted.Inc()
	r.StepsCompleted.Inc()
	if got := testutil.ToFloat64(r.StepsCompleted); got != 2 {
		t.Fatalf("got %v want 2", got)
	}
}
