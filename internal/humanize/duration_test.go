package humanize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDurationBuckets(t *testing.T) {
	require.Equal(t, "500 ns", Duration(500*time.Nanosecond))
	require.Equal(t, "500 us", Duration(500*time.Microsecond))
	require.Equal(t, "500 ms", Duration(500*time.Millisecond))
	require.Equal(t, "2.5 secs", Duration(2500*time.Millisecond))
}
