package saver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DirSaver writes exported files into Dir. Existing files with the same name are
// replaced.
type DirSaver struct {
	Dir string
	// Perm defaults to 0o600.
	Perm os.FileMode
}

// Save writes r to Dir/name through a temporary file and a rename so a partial
// download never appears under the final name.
func (s DirSaver) Save(ctx context.Context, name string, r io.Reader) error {
	base := BaseName(name)
	if base == "" {
		return ErrEmptyName
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("saver: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("saver: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: r}); err != nil {
		cleanup()
		return fmt.Errorf("saver: write %s: %w", base, err)
	}
	perm := s.Perm
	if perm == 0 {
		perm = 0o600
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return fmt.Errorf("saver: chmod %s: %w", base, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("saver: close %s: %w", base, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.Dir, base)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("saver: rename %s: %w", base, err)
	}
	return nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
