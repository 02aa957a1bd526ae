package saver

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrEmptyName is returned when a save is requested without a usable filename.
var ErrEmptyName = errors.New("saver: empty file name")

// Saver persists an exported file.
type Saver interface {
	Save(ctx context.Context, name string, r io.Reader) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, name string, r io.Reader) error

// Save calls f(ctx, name, r).
func (f SaverFunc) Save(ctx context.Context, name string, r io.Reader) error {
	return f(ctx, name, r)
}

// BaseName strips any directory component and control characters from name. The result
// is empty when nothing usable remains.
func BaseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(name)
}
