package saver

import (
	"context"
	"io"
	"sort"
	"sync"
)

// MemorySaver keeps saved files in memory.
type MemorySaver struct {
	mu    sync.Mutex
	files map[string][]byte
	saves int
}

// NewMemorySaver returns an empty MemorySaver.
func NewMemorySaver() *MemorySaver {
	return &MemorySaver{files: make(map[string][]byte)}
}

// Save reads r fully and records it under name.
func (s *MemorySaver) Save(ctx context.Context, name string, r io.Reader) error {
	if name == "" {
		return ErrEmptyName
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		s.files = make(map[string][]byte)
	}
	s.files[name] = b
	s.saves++
	return nil
}

// File returns the bytes saved under name.
func (s *MemorySaver) File(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[name]
	return b, ok
}

// Names returns the saved filenames in sorted order.
func (s *MemorySaver) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for name := range s.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Saves reports how many Save calls succeeded.
func (s *MemorySaver) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
