package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/Farmer96/LuckGen/internal/models"
)

// File stores the document as a JSON file. Writes go to a temporary file in
// the same directory which then replaces the target, so readers never see a
// half-written document.
type File struct {
	path string
}

// NewFile creates a store backed by the file at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load reads and decodes the file.
func (f *File) Load(_ context.Context) (*models.LotteryConfig, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", f.path)
	}
	return decode(data)
}

// Save atomically replaces the file.
func (f *File) Save(_ context.Context, cfg *models.LotteryConfig) error {
	data, err := encode(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".lottery-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	return errors.Wrapf(os.Rename(tmp.Name(), f.path), "replace %s", f.path)
}

// Delete removes the file. A missing file is not an error.
func (f *File) Delete(_ context.Context) error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "remove %s", f.path)
	}
	return nil
}
