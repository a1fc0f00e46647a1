package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

const (
	dirPermissions  = 0o700
	filePermissions = 0o600
)

// FileSlot keeps the blob in a single file. Writes go through a temporary file and a
// rename, so readers never see a partially written blob.
type FileSlot struct {
	path string
}

// NewFileSlot creates a FileSlot for path. The parent directory is created on first write.
func NewFileSlot(path string) *FileSlot {
	return &FileSlot{path: path}
}

// Path returns the file backing the slot.
func (s *FileSlot) Path() string {
	return s.path
}

func (s *FileSlot) Read(context.Context) ([]byte, error) {
	//nolint:gosec // G304: path comes from runtime settings
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}

		return nil, errors.Wrap(err, "failed to read settings file")
	}

	return data, nil
}

func (s *FileSlot) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return errors.Wrap(err, "failed to create settings directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return errors.Wrap(err, "failed to write temporary file")
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return errors.Wrap(err, "failed to close temporary file")
	}

	if err := os.Chmod(tmpName, filePermissions); err != nil {
		_ = os.Remove(tmpName)

		return errors.Wrap(err, "failed to set file permissions")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)

		return errors.Wrap(err, "failed to replace settings file")
	}

	return nil
}

func (s *FileSlot) Remove(context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove settings file")
	}

	return nil
}

func (*FileSlot) Close() error {
	return nil
}
