// Package logging provides a unified logging interface for concfetch.
// It abstracts the underlying logging implementation, allowing consistent logging
// across components while supporting multiple backends.
//
// The diagnostic sink used by the pipelines renders each entry as
//
//	<seconds>.<millis> [<LEVEL>] - <message>
//
// where the elapsed time is measured from a process-wide clock started once
// at program startup.
package logging
