// Package kfmt provides formatted kernel output. Subsystems print
// diagnostics through Printf without caring whether a console exists yet:
// output produced before an output sink is installed accumulates in a small
// ring buffer and is flushed to the sink as soon as one is registered.
package kfmt

import (
	"fmt"
	"io"
)

var (
	// earlyPrintBuffer is a ring buffer that stores Printf output emitted
	// before an output sink is installed.
	earlyPrintBuffer ringBuffer

	// outputSink is the io.Writer where Printf sends its output. If set to
	// nil, the output is redirected to the earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the target for calls to Printf to w and copies any data
// accumulated in the early print buffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// Printf formats its arguments according to the fmt.Printf rules and writes
// the result to the currently active output sink. If no sink has been
// installed yet, the output is buffered until a call to SetOutputSink.
func Printf(format string, args ...interface{}) {
	if outputSink == nil {
		fmt.Fprintf(&earlyPrintBuffer, format, args...)
		return
	}
	fmt.Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
}
