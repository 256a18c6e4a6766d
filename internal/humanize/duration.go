// Package humanize formats durations for log lines the way a human reads
// them, instead of Go's default "1.234567s" representation.
package humanize

import (
	"fmt"
	"time"
)

// Duration renders d in whichever of ns/us/ms/secs best fits its magnitude,
// matching the thresholds a reader expects from a progress log line.
func Duration(d time.Duration) string {
	total := d.Seconds()
	switch {
	case total < 0.000001:
		return fmt.Sprintf("%g ns", total*1e9)
	case total < 0.001:
		return fmt.Sprintf("%g us", total*1e6)
	case total < 1.0:
		return fmt.Sprintf("%g ms", total*1e3)
	default:
		return fmt.Sprintf("%g secs", total)
	}
}
