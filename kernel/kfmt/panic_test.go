package kfmt

import (
	"bytes"
	"errors"
	"testing"

	"gosix/kernel"
)

func TestPanic(t *testing.T) {
	defer func() {
		haltFn = func(err *kernel.Error) { panic(err) }
		resetOutput()
	}()

	var haltErr *kernel.Error
	haltFn = func(err *kernel.Error) {
		haltErr = err
	}

	t.Run("with *kernel.Error", func(t *testing.T) {
		resetOutput()
		var buf bytes.Buffer
		SetOutputSink(&buf)

		err := &kernel.Error{Module: "test", Message: "panic test"}
		Panic(err)

		exp := "\n-----------------------------------\n[test] unrecoverable error: panic test\n*** kernel panic: system halted ***\n-----------------------------------\n"
		if got := buf.String(); got != exp {
			t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
		}

		if haltErr != err {
			t.Fatalf("expected halt to receive %v; got %v", err, haltErr)
		}
	})

	t.Run("with error", func(t *testing.T) {
		resetOutput()
		var buf bytes.Buffer
		SetOutputSink(&buf)

		Panic(errors.New("go error"))

		exp := "\n-----------------------------------\n[rt] unrecoverable error: go error\n*** kernel panic: system halted ***\n-----------------------------------\n"
		if got := buf.String(); got != exp {
			t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
		}
	})

	t.Run("with string", func(t *testing.T) {
		resetOutput()
		var buf bytes.Buffer
		SetOutputSink(&buf)

		Panic("string error")

		exp := "\n-----------------------------------\n[rt] unrecoverable error: string error\n*** kernel panic: system halted ***\n-----------------------------------\n"
		if got := buf.String(); got != exp {
			t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
		}
	})

	t.Run("without error", func(t *testing.T) {
		resetOutput()
		var buf bytes.Buffer
		SetOutputSink(&buf)

		Panic(nil)

		exp := "\n-----------------------------------\n*** kernel panic: system halted ***\n-----------------------------------\n"
		if got := buf.String(); got != exp {
			t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
		}
	})
}
