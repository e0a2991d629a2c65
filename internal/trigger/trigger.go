// Package trigger models the operator's "ready" signal between login and
// scraping. The wait has no timeout of its own; it ends when the signal
// arrives or the context is cancelled.
package trigger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrAborted is returned when the operator presses Ctrl-C while the terminal
// is in raw mode.
var ErrAborted = errors.New("aborted by operator")

const ctrlC = 0x03

// Trigger blocks until the operator is ready
type Trigger interface {
	Wait(ctx context.Context) error
}

// Func adapts a plain function to Trigger
type Func func(ctx context.Context) error

func (f Func) Wait(ctx context.Context) error { return f(ctx) }

// Immediate fires at once unless ctx is already done
var Immediate Trigger = Func(func(ctx context.Context) error { return ctx.Err() })

// KeyPress waits for Enter on a reader. On a terminal it switches to raw mode
// so a single keypress is enough.
type KeyPress struct {
	in io.Reader
}

// NewKeyPress reads from in, or stdin when in is nil
func NewKeyPress(in io.Reader) *KeyPress {
	if in == nil {
		in = os.Stdin
	}
	return &KeyPress{in: in}
}

func (k *KeyPress) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if f, ok := k.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, err := term.MakeRaw(int(f.Fd()))
		if err == nil {
			defer func() {
				_ = term.Restore(int(f.Fd()), state)
			}()
		}
	}

	// The read cannot be interrupted; on cancellation the goroutine is left
	// to finish when the reader next returns.
	done := make(chan error, 1)
	go func() {
		done <- waitForEnter(bufio.NewReader(k.in))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func waitForEnter(r *bufio.Reader) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("waiting for enter: %w", err)
		}
		switch b {
		case '\r', '\n':
			return nil
		case ctrlC:
			return ErrAborted
		}
	}
}
