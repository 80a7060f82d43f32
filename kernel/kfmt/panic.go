package kfmt

import (
	"gosix/kernel"
)

var (
	// haltFn halts the system after a kernel panic. The kernel runs hosted
	// inside a regular Go process, so the default halt action surfaces the
	// failure as a runtime panic. It is a variable so tests can intercept it.
	haltFn = func(err *kernel.Error) {
		panic(err)
	}

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic outputs the supplied error (if not nil) to the active output sink
// and halts the system. Calls to Panic never return.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	haltFn(err)
}
