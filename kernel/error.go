// Package kernel provides the error type shared by every kernel subsystem.
package kernel

// Error describes a kernel error. Kernel errors are defined as global
// variables that are pointers to the Error structure so that call sites can
// match a particular failure with a simple pointer comparison.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
