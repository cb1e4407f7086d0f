package invoke

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerPutAndGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := OpenLedger(path, 0)
	require.NoError(t, err)
	defer l.Close()

	rec := StepRecord{
		Step:              3,
		ReducedDoneAt:     time.Now(),
		AugDoneAt:         time.Now(),
		ProcessorDuration: 2 * time.Second,
	}
	require.NoError(t, l.Put(rec))

	got, ok, err := l.Get(3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got.Step)
	assert.Equal(t, 2*time.Second, got.ProcessorDuration)
}

func TestLedgerGetMissingStep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := OpenLedger(path, 0)
	require.NoError(t, err)
	defer l.Close()

	_, ok, err := l.Get(99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerRotatesSnapshotEveryNWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := OpenLedger(path, 2)
	require.NoError(t, err)
	defer l.Close()

	for step := 0; step < 2; step++ {
		require.NoError(t, l.Put(StepRecord{Step: step}))
	}
	// After 2 writes with rotateEvery=2, a snapshot file should exist.
	_, err = os.Stat(l.snapshotPath)
	assert.NoError(t, err)
}
