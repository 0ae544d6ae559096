package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrNotTerminal is returned when raw mode is requested on a non-terminal.
var ErrNotTerminal = errors.New("not a terminal")

// Stop keys read from the terminal.
const (
	keyEsc   = 0x1B
	keyCtrlC = 0x03
)

// TerminalListener trips on ESC or Ctrl-C read from in. The terminal must
// already be in raw mode (see MakeRaw) so keys arrive unbuffered.
type TerminalListener struct {
	in io.Reader
}

// NewTerminalListener creates a listener reading from in.
func NewTerminalListener(in io.Reader) *TerminalListener {
	return &TerminalListener{in: in}
}

// Listen implements killswitch.Listener. The reader goroutine may outlive
// Listen until the next byte or EOF arrives.
func (l *TerminalListener) Listen(ctx context.Context, onTrip func()) error {
	keys := make(chan byte)
	errCh := make(chan error, 1)

	go func() {
		buf := make([]byte, 64)
		for {
			n, err := l.in.Read(buf)
			for _, b := range buf[:n] {
				select {
				case keys <- b:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read terminal: %w", err)
		case b := <-keys:
			if b == keyEsc || b == keyCtrlC {
				onTrip()
			}
		}
	}
}

// MakeRaw puts f into raw mode and returns a function restoring it.
func MakeRaw(f *os.File) (restore func(), err error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("make raw: %w", err)
	}
	return func() { _ = term.Restore(fd, state) }, nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
