// Package clipboard copies text to the system clipboard.
package clipboard

import (
	"errors"
	"strings"

	cb "github.com/atotto/clipboard"
)

var ErrUnavailable = errors.New("no clipboard utility available")

// Writer is satisfied by System and by test doubles.
type Writer interface {
	Copy(text string) error
}

type System struct{}

func (System) Copy(text string) error { return Copy(text) }

// Copy writes text to the clipboard. Blank text is ignored.
func Copy(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if cb.Unsupported {
		return ErrUnavailable
	}
	return cb.WriteAll(text)
}

func Read() (string, error) {
	if cb.Unsupported {
		return "", ErrUnavailable
	}
	return cb.ReadAll()
}
