package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileSlot stores the snapshot as one file. Writes land in a sibling temp
// file that is renamed over the target, so readers never see a torn file.
type FileSlot struct {
	fs   afero.Fs
	path string
}

func NewFileSlot(fsys afero.Fs, path string) *FileSlot {
	return &FileSlot{fs: fsys, path: path}
}

func (s *FileSlot) Name() string { return "file:" + s.path }

func (s *FileSlot) Load(_ context.Context) ([]byte, error) {
	b, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to read slot %s: %w", s.path, err)
	}
	if len(b) == 0 {
		return nil, ErrSlotEmpty
	}
	return b, nil
}

func (s *FileSlot) Store(_ context.Context, b []byte) error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create slot directory %s: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, b, 0o600); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace slot %s: %w", s.path, err)
	}
	return nil
}
