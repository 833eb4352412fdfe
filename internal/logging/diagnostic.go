package logging

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LevelOff disables the diagnostic sink. It is the level used when no
// threshold has been configured.
const LevelOff = "off"

var (
	clockOnce  sync.Once
	clockStart time.Time
)

// StartClock captures the process start time used as the base of every
// diagnostic timestamp. Only the first call has an effect.
func StartClock() {
	clockOnce.Do(func() { clockStart = time.Now() })
}

// Elapsed returns the time since StartClock. It starts the clock if needed.
func Elapsed() time.Duration {
	StartClock()
	return time.Since(clockStart)
}

// FormatElapsed renders d as seconds with millisecond precision.
func FormatElapsed(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// ParseLevel maps a threshold setting to a zerolog level. An empty value or
// "off" disables logging.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == LevelOff {
		return zerolog.Disabled, nil
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.Disabled, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// NewDiagnosticLogger returns the diagnostic sink writing to out. Entries
// below level are dropped.
func NewDiagnosticLogger(out io.Writer, level zerolog.Level) *ZerologAdapter {
	return newDiagnosticLogger(out, level, Elapsed)
}

func newDiagnosticLogger(out io.Writer, level zerolog.Level, clock func() time.Duration) *ZerologAdapter {
	cw := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		PartsOrder: []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatTimestamp: func(i interface{}) string {
			return fmt.Sprint(i)
		},
		FormatLevel: func(i interface{}) string {
			return "[" + strings.ToUpper(fmt.Sprint(i)) + "]"
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return "-"
			}
			return "- " + fmt.Sprint(i)
		},
		// The error of an Error entry is appended to the message as-is.
		FormatErrFieldName: func(interface{}) string { return "" },
		FormatErrFieldValue: func(i interface{}) string {
			s := fmt.Sprint(i)
			// The console writer double-quotes values it cannot print bare;
			// anything else is the error text itself.
			if strings.HasPrefix(s, `"`) {
				if unquoted, err := strconv.Unquote(s); err == nil {
					return unquoted
				}
			}
			return s
		},
	}
	stamp := zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
		e.Str(zerolog.TimestampFieldName, FormatElapsed(clock()))
	})
	zl := zerolog.New(cw).Level(level).Hook(stamp)
	return NewZerologAdapter(zl)
}
