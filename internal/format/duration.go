// Package format renders values for diagnostic output.
package format

import (
	"fmt"
	"time"
)

// Duration renders d with a unit suited to its magnitude: microseconds
// below a millisecond, milliseconds below a second, and time.Duration's
// own representation above that.
func Duration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Millisecond).String()
}
