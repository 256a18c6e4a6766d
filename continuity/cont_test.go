package continuity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// errDiskFull stands in for the I/O failures the shard writers chain through
// this package.
var errDiskFull = errors.New("disk full")

func TestAllStepsSucceed(t *testing.T) {
	var ran []string
	step := func(name string) func() error {
		return func() error {
			ran = append(ran, name)
			return nil
		}
	}
	err := New().
		Thenf("write", step("write")).
		Thenf("sync", step("sync")).
		Thenf("close", step("close")).
		Err()
	require.NoError(t, err)
	require.Equal(t, []string{"write", "sync", "close"}, ran)
}

func TestFailureStopsTheChain(t *testing.T) {
	closed := false
	err := New().
		Thenf("write", func() error { return nil }).
		Thenf("sync", func() error { return errDiskFull }).
		Thenf("close", func() error {
			closed = true
			return nil
		}).
		Err()
	require.Error(t, err)
	require.False(t, closed, "steps after a failure must not run")
}

func TestErrorCarriesStepName(t *testing.T) {
	err := New().
		Thenf("sync", func() error { return errDiskFull }).
		Err()
	require.ErrorIs(t, err, errDiskFull)
	require.Contains(t, err.Error(), "sync: ")
}

func TestThenCollectsNonNil(t *testing.T) {
	other := errors.New("short write")
	err := New().
		Then("flush", nil, errDiskFull, other).
		Err()
	require.ErrorIs(t, err, errDiskFull)
	require.ErrorIs(t, err, other)
	require.Contains(t, err.Error(), "multiple errors: ")

	require.NoError(t, New().Then("flush", nil, nil).Err())
}
